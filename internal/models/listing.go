// Package models defines the core domain entities: pairs, snapshots,
// listing events, time candidates, and posted records.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Market designates the trading venue type of a feed.
type Market string

const (
	MarketSpot    Market = "spot"
	MarketFutures Market = "futures"
)

// Pair is a base/quote trading symbol, e.g. BTC/USDT.
// Both legs are stored uppercase.
type Pair struct {
	Base  string
	Quote string
}

// NewPair normalizes both legs to uppercase.
func NewPair(base, quote string) Pair {
	return Pair{
		Base:  strings.ToUpper(strings.TrimSpace(base)),
		Quote: strings.ToUpper(strings.TrimSpace(quote)),
	}
}

// ParsePair parses a BASE/QUOTE display string.
func ParsePair(s string) (Pair, error) {
	base, quote, ok := strings.Cut(s, "/")
	if !ok {
		return Pair{}, fmt.Errorf("invalid pair %q: missing slash", s)
	}
	p := NewPair(base, quote)
	if err := p.Validate(); err != nil {
		return Pair{}, err
	}
	return p, nil
}

// String renders the canonical BASE/QUOTE form.
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// Validate checks pair field constraints.
func (p Pair) Validate() error {
	if p.Base == "" {
		return errors.New("pair base must not be empty")
	}
	if p.Quote == "" {
		return errors.New("pair quote must not be empty")
	}
	if p.Base != strings.ToUpper(p.Base) || p.Quote != strings.ToUpper(p.Quote) {
		return errors.New("pair legs must be uppercase")
	}
	return nil
}

// Snapshot maps every currently tradable pair of one feed to its
// reference URL. Replaced wholesale each poll cycle.
type Snapshot map[Pair]string

// FeedKey is the snapshot-store key for one (exchange, market) feed.
func FeedKey(exchange string, market Market) string {
	return strings.ToLower(exchange) + "|" + string(market)
}

// PostedKey is the dedup-store key for one announced pair.
func PostedKey(exchange string, market Market, pair Pair) string {
	return FeedKey(exchange, market) + "|" + pair.String()
}

// ListingEvent describes one pair newly present in a feed snapshot.
// Events are transient; only the resulting PostedRecord is persisted.
type ListingEvent struct {
	ID           string
	Exchange     string
	Market       Market
	Pair         Pair
	URL          string
	DiscoveredAt time.Time
}

// Validate checks listing event field constraints.
func (e *ListingEvent) Validate() error {
	if e.Exchange == "" {
		return errors.New("event exchange must not be empty")
	}
	if e.Market != MarketSpot && e.Market != MarketFutures {
		return fmt.Errorf("unknown market %q", e.Market)
	}
	if err := e.Pair.Validate(); err != nil {
		return err
	}
	if e.DiscoveredAt.IsZero() {
		return errors.New("event discovery time must be set")
	}
	return nil
}

// Key returns the dedup-store key of the event.
func (e *ListingEvent) Key() string {
	return PostedKey(e.Exchange, e.Market, e.Pair)
}

// TimeCandidate is one displayable interpretation of "when trading
// opens". Display preserves the source timezone token verbatim; no
// conversion is ever applied. Instant is best-effort and may be zero.
type TimeCandidate struct {
	Display string
	Instant time.Time
	// PublishTime marks the weaker publication-timestamp signal coming
	// from page metadata rather than announcement prose.
	PublishTime bool
}

// PostedRecord is the durable dedup entry for one announced pair.
// Records are created once, mutated only when a time is resolved, and
// never deleted.
type PostedRecord struct {
	Exchange  string
	Market    Market
	Pair      Pair
	MessageID int
	ChatID    int64
	PostedAt  time.Time
	HaveTime  bool
	BestTime  string
	SourceURL string
	Title     string
}

// Key returns the dedup-store key of the record.
func (r *PostedRecord) Key() string {
	return PostedKey(r.Exchange, r.Market, r.Pair)
}

// Validate checks posted record invariants.
func (r *PostedRecord) Validate() error {
	if r.Exchange == "" {
		return errors.New("record exchange must not be empty")
	}
	if r.Market != MarketSpot && r.Market != MarketFutures {
		return fmt.Errorf("unknown market %q", r.Market)
	}
	if err := r.Pair.Validate(); err != nil {
		return err
	}
	if r.HaveTime && r.BestTime == "" {
		return errors.New("have_time implies a non-empty best time")
	}
	if r.PostedAt.IsZero() {
		return errors.New("record posted_at must be set")
	}
	return nil
}
