package timeparse

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/net/html"

	"cryptohornet/internal/models"
)

// ExtractPublishedAt pulls a publication timestamp out of page
// metadata (meta tags, <time datetime>, JSON-LD). This is a weaker
// signal than prose candidates, since it is the publish time rather
// than the trading-open time, and is flagged as such.
func ExtractPublishedAt(doc *html.Node) (models.TimeCandidate, bool) {
	var raw []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if metaMatches(n) {
					if v := attr(n, "content"); v != "" {
						raw = append(raw, v)
					}
				}
			case "time":
				if v := attr(n, "datetime"); v != "" {
					raw = append(raw, v)
				}
			case "script":
				if attr(n, "type") == "application/ld+json" && n.FirstChild != nil {
					raw = append(raw, ldTimestamps(n.FirstChild.Data)...)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, s := range raw {
		if c, ok := parseISO(s); ok {
			return c, true
		}
	}
	return models.TimeCandidate{}, false
}

func metaMatches(n *html.Node) bool {
	switch {
	case attr(n, "property") == "article:published_time",
		attr(n, "property") == "og:article:published_time",
		attr(n, "name") == "pubdate",
		attr(n, "itemprop") == "datePublished":
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// ldTimestamps walks arbitrary JSON-LD for datePublished/dateModified
// values, in document order.
func ldTimestamps(src string) []string {
	var data any
	if err := json.Unmarshal([]byte(src), &data); err != nil {
		return nil
	}
	var out []string
	var walk func(any)
	walk = func(x any) {
		switch v := x.(type) {
		case map[string]any:
			for _, key := range []string{"datePublished", "dateModified"} {
				if s, ok := v[key].(string); ok {
					out = append(out, s)
				}
			}
			for _, vv := range v {
				walk(vv)
			}
		case []any:
			for _, vv := range v {
				walk(vv)
			}
		}
	}
	walk(data)
	return out
}

// parseISO accepts RFC 3339-ish strings. Zone-aware values render in
// UTC with an explicit label; naive values render without a zone
// token, because inventing one would be a conversion.
func parseISO(s string) (models.TimeCandidate, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04"} {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		display := t.Format("2006-01-02 15:04")
		if layout == time.RFC3339 {
			display = t.UTC().Format("2006-01-02 15:04") + " UTC"
		}
		return models.TimeCandidate{Display: display, Instant: t, PublishTime: true}, true
	}
	return models.TimeCandidate{}, false
}
