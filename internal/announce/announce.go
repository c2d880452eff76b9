// Package announce crawls exchange announcement sections for listing
// articles. Each exchange exposes one or more "new listings" index
// pages; the crawler collects article links from an index, fetches the
// articles, and extracts their title, pair symbols, and time
// candidates.
package announce

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"cryptohornet/internal/fetch"
	"cryptohornet/internal/logger"
	"cryptohornet/internal/models"
	"cryptohornet/internal/timeparse"
)

// maxArticlesPerSection bounds how many links one index page
// contributes per sweep.
const maxArticlesPerSection = 20

// sections maps an exchange to its announcement index pages. Futures
// listings are usually announced alongside spot on the same section.
var sections = map[string][]string{
	"binance": {
		"https://www.binance.com/en/support/announcement/list/48",
	},
	"okx": {
		"https://www.okx.com/help/section/announcements-new-listings",
	},
	"gate": {
		"https://www.gate.io/announcements/newlisted",
	},
	"bitget": {
		"https://www.bitget.com/support/sections/5955813039257",
	},
	"mexc": {
		"https://www.mexc.com/support/sections/360000254192",
	},
	"bingx": {
		"https://bingx.com/en-us/support/notice-center/",
	},
}

// articlePathMarkers identify hrefs that point at individual articles
// rather than navigation chrome.
var articlePathMarkers = []string{
	"/announcements/",
	"/support/articles/",
	"/help/articles/",
	"/support/announcement",
	"/notice-center/articles",
}

// Article is one fetched announcement with everything extracted from
// it.
type Article struct {
	Exchange   string
	URL        string
	Title      string
	Symbols    []string
	Candidates []models.TimeCandidate
}

// Crawler fetches announcement sections through the shared HTTP
// client.
type Crawler struct {
	client *fetch.Client

	// Sections overrides the built-in index URLs, for tests.
	Sections map[string][]string
}

func NewCrawler(client *fetch.Client) *Crawler {
	return &Crawler{client: client, Sections: sections}
}

// SectionURLs returns the announcement index pages of an exchange.
func (c *Crawler) SectionURLs(exchange string) []string {
	return c.Sections[exchange]
}

// Articles fetches every announcement section of an exchange and
// returns the parsed articles. Individual page failures are logged and
// skipped; the sweep must keep moving.
func (c *Crawler) Articles(ctx context.Context, exchange string) []Article {
	var out []Article
	seen := map[string]bool{}
	for _, section := range c.Sections[exchange] {
		links, err := c.collectLinks(ctx, section)
		if err != nil {
			logger.Warn("announce: section fetch failed for %s: %v", section, err)
			continue
		}
		for _, link := range links {
			if seen[link] {
				continue
			}
			seen[link] = true
			art, err := c.fetchArticle(ctx, exchange, link)
			if err != nil {
				logger.Debug("announce: article fetch failed for %s: %v", link, err)
				continue
			}
			out = append(out, art)
		}
	}
	return out
}

// collectLinks pulls article hrefs out of one index page, resolving
// relative URLs against the page, in document order.
func (c *Crawler) collectLinks(ctx context.Context, sectionURL string) ([]string, error) {
	body, err := c.client.GetHTML(ctx, sectionURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", sectionURL, err)
	}
	base, err := url.Parse(sectionURL)
	if err != nil {
		return nil, err
	}

	var links []string
	seen := map[string]bool{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(links) >= maxArticlesPerSection {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := nodeAttr(n, "href"); isArticleHref(href) {
				abs := resolveHref(base, href)
				if abs != "" && !seen[abs] {
					seen[abs] = true
					links = append(links, abs)
				}
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)
	return links, nil
}

func isArticleHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return false
	}
	for _, marker := range articlePathMarkers {
		if strings.Contains(href, marker) {
			return true
		}
	}
	return false
}

func resolveHref(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// fetchArticle downloads one announcement and extracts its title, pair
// symbols, and time candidates. A metadata publish timestamp is
// appended after the prose candidates when the prose yielded nothing
// with the same display.
func (c *Crawler) fetchArticle(ctx context.Context, exchange, articleURL string) (Article, error) {
	body, err := c.client.GetHTML(ctx, articleURL)
	if err != nil {
		return Article{}, err
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return Article{}, fmt.Errorf("failed to parse %s: %w", articleURL, err)
	}

	title := extractTitle(doc)
	text := extractText(doc)
	candidates := timeparse.ExtractAll(title + "\n" + text)

	if meta, ok := timeparse.ExtractPublishedAt(doc); ok {
		dup := false
		for _, cand := range candidates {
			if cand.Display == meta.Display {
				dup = true
				break
			}
		}
		if !dup {
			candidates = append(candidates, meta)
		}
	}

	return Article{
		Exchange:   exchange,
		URL:        articleURL,
		Title:      title,
		Symbols:    timeparse.ExtractSymbols(title + "\n" + text),
		Candidates: candidates,
	}, nil
}

// extractTitle prefers the first h1, then h2, then <title>.
func extractTitle(doc *html.Node) string {
	for _, tag := range []string{"h1", "h2", "title"} {
		if n := findElement(doc, tag); n != nil {
			if t := strings.TrimSpace(textOf(n)); t != "" {
				return t
			}
		}
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// extractText flattens a document to whitespace-separated prose,
// skipping script and style subtrees.
func extractText(doc *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(strings.Fields(b.String()), " ")
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func nodeAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
