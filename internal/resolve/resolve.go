// Package resolve turns a new-listing event into time candidates. The
// pipeline consults sources in strength order: the exchange's own API
// field, the exchange's announcement articles, then a generic scan of
// other exchanges' announcement feeds. The first source that yields
// anything wins; failures fall through silently because an unresolved
// time is a normal outcome, not an error.
package resolve

import (
	"context"

	"cryptohornet/internal/announce"
	"cryptohornet/internal/exchange"
	"cryptohornet/internal/logger"
	"cryptohornet/internal/models"
)

// TimeLookup provides per-exchange structured time sources.
type TimeLookup interface {
	TimeSource(ex string) (exchange.TimeSource, bool)
}

// Announcements provides fetched announcement articles per exchange.
type Announcements interface {
	Articles(ctx context.Context, ex string) []announce.Article
}

// Result carries everything a resolution produced. Primary is nil when
// no opening-time candidate was found; Extras may still hold weaker
// candidates (publish times, ambiguous matches). SourceURL points at
// the article the primary came from, when there is one.
type Result struct {
	Primary   *models.TimeCandidate
	Extras    []models.TimeCandidate
	SourceURL string
	Title     string
}

// Pipeline resolves listing times. It performs no writes anywhere; the
// caller owns persistence and notification.
type Pipeline struct {
	times TimeLookup
	anns  Announcements
	scan  []string
}

// New builds a pipeline. scan lists the exchanges whose announcement
// feeds the generic fallback walks, in order.
func New(times TimeLookup, anns Announcements, scan []string) *Pipeline {
	return &Pipeline{times: times, anns: anns, scan: scan}
}

// Resolve runs the source cascade for one event.
func (p *Pipeline) Resolve(ctx context.Context, ev models.ListingEvent) Result {
	// 1) The exchange's own API field is authoritative.
	if ts, ok := p.times.TimeSource(ev.Exchange); ok {
		cand, found, err := ts.ListingTime(ctx, ev.Market, ev.Pair)
		if err != nil {
			logger.Debug("resolve: api lookup failed for %s: %v", ev.Key(), err)
		} else if found {
			return Result{Primary: &cand}
		}
	}

	// 2) The exchange's own announcements.
	if res, ok := p.fromArticles(ctx, ev, ev.Exchange); ok {
		return res
	}

	// 3) Generic scan across the other exchanges' feeds. A listing is
	// often cross-announced before the venue's own post goes up.
	for _, ex := range p.scan {
		if ex == ev.Exchange {
			continue
		}
		if res, ok := p.fromArticles(ctx, ev, ex); ok {
			return res
		}
	}

	return Result{}
}

// fromArticles scans one exchange's articles for the event's base
// symbol and assembles a result from the first match carrying
// candidates.
func (p *Pipeline) fromArticles(ctx context.Context, ev models.ListingEvent, ex string) (Result, bool) {
	for _, art := range p.anns.Articles(ctx, ex) {
		if !mentions(art, ev.Pair.Base) || len(art.Candidates) == 0 {
			continue
		}
		res := Result{SourceURL: art.URL, Title: art.Title}
		for i := range art.Candidates {
			c := art.Candidates[i]
			if res.Primary == nil && !c.PublishTime {
				res.Primary = &art.Candidates[i]
				continue
			}
			res.Extras = append(res.Extras, c)
		}
		return res, true
	}
	return Result{}, false
}

func mentions(art announce.Article, base string) bool {
	for _, sym := range art.Symbols {
		if sym == base {
			return true
		}
	}
	return false
}
