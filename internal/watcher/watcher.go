// Package watcher runs the per-feed polling loops: fetch a snapshot,
// diff it against the stored one, announce new pairs, and persist. A
// separate sweep loop revisits announced pairs that still lack a
// resolved opening time and edits their messages in place.
package watcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cryptohornet/internal/exchange"
	"cryptohornet/internal/logger"
	"cryptohornet/internal/models"
	"cryptohornet/internal/resolve"
	"cryptohornet/internal/storage"
)

// Notifier is the outbound message channel. telegram.Client satisfies
// it; tests use a fake.
type Notifier interface {
	Post(text string) (int, error)
	Edit(messageID int, text string) error
}

// Resolver turns a listing event into time candidates.
type Resolver interface {
	Resolve(ctx context.Context, ev models.ListingEvent) resolve.Result
}

// Feed binds one (exchange, market) to its snapshot fetcher.
type Feed struct {
	Exchange string
	Market   models.Market
	Fetch    exchange.Fetcher
}

// Key returns the feed's snapshot-store key.
func (f Feed) Key() string {
	return models.FeedKey(f.Exchange, f.Market)
}

// Config holds watcher behavior settings.
type Config struct {
	PollInterval  time.Duration
	SweepInterval time.Duration
	OnlyUSDT      bool
	MaxExtraTimes int
	ChatID        int64
}

// Watcher owns the poll and sweep loops over one storage instance.
type Watcher struct {
	store    *storage.Storage
	resolver Resolver
	notifier Notifier
	cfg      Config

	// announceMu serializes the check-post-record sequence so two
	// feeds cannot interleave their dedup checks.
	announceMu sync.Mutex
}

func New(store *storage.Storage, resolver Resolver, notifier Notifier, cfg Config) *Watcher {
	return &Watcher{
		store:    store,
		resolver: resolver,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Diff returns the pairs present in cur but absent from prev, sorted
// for deterministic announcement order. Removed pairs are not events;
// delistings are out of scope.
func Diff(prev, cur models.Snapshot) []models.Pair {
	var added []models.Pair
	for pair := range cur {
		if _, ok := prev[pair]; !ok {
			added = append(added, pair)
		}
	}
	sort.Slice(added, func(i, j int) bool {
		if added[i].Base != added[j].Base {
			return added[i].Base < added[j].Base
		}
		return added[i].Quote < added[j].Quote
	})
	return added
}

// RunFeed polls one feed until ctx is cancelled. Cycles run strictly
// sequentially; a slow cycle delays the next tick rather than
// overlapping it.
func (w *Watcher) RunFeed(ctx context.Context, feed Feed) {
	logger.Info("Watching %s (interval: %v)", feed.Key(), w.cfg.PollInterval)

	w.runCycle(ctx, feed)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Feed %s stopped", feed.Key())
			return
		case <-ticker.C:
			w.runCycle(ctx, feed)
		}
	}
}

// runCycle performs one fetch-diff-announce-persist pass. The snapshot
// is only replaced when every announcement succeeded; a failed post
// leaves the old snapshot in place so the pair diffs out again next
// cycle.
func (w *Watcher) runCycle(ctx context.Context, feed Feed) {
	cur, err := feed.Fetch(ctx)
	if err != nil {
		logger.Error("Fetch failed for %s: %v", feed.Key(), err)
		return
	}
	if w.cfg.OnlyUSDT {
		cur = filterUSDT(cur)
	}
	if len(cur) == 0 {
		logger.Warn("Empty snapshot for %s, skipping cycle", feed.Key())
		return
	}

	prev, err := w.store.GetSnapshot(feed.Key())
	if err != nil {
		logger.Error("Snapshot read failed for %s: %v", feed.Key(), err)
		return
	}

	// First observation of a feed seeds the store silently. Announcing
	// an entire exchange's listing history would be noise.
	if len(prev) == 0 {
		if err := w.store.ReplaceSnapshot(feed.Key(), cur); err != nil {
			logger.Error("Snapshot seed failed for %s: %v", feed.Key(), err)
			return
		}
		logger.Info("Seeded %s with %d pairs", feed.Key(), len(cur))
		return
	}

	added := Diff(prev, cur)
	if len(added) > 0 {
		logger.Info("Feed %s: %d new pairs", feed.Key(), len(added))
	}

	allPosted := true
	for _, pair := range added {
		ev := models.ListingEvent{
			ID:           uuid.New().String(),
			Exchange:     feed.Exchange,
			Market:       feed.Market,
			Pair:         pair,
			URL:          cur[pair],
			DiscoveredAt: time.Now().UTC(),
		}
		if err := w.announce(ctx, ev); err != nil {
			logger.Error("Announce failed for %s: %v", ev.Key(), err)
			allPosted = false
		}
	}

	if !allPosted {
		return
	}
	if err := w.store.ReplaceSnapshot(feed.Key(), cur); err != nil {
		logger.Error("Snapshot replace failed for %s: %v", feed.Key(), err)
	}
}

// announce posts one new listing unless it was already announced. The
// record is written only after a successful post, so a delivery
// failure leaves the pair eligible for a retry.
func (w *Watcher) announce(ctx context.Context, ev models.ListingEvent) error {
	w.announceMu.Lock()
	defer w.announceMu.Unlock()

	posted, err := w.store.WasPosted(ev.Key())
	if err != nil {
		return err
	}
	if posted {
		logger.Debug("Already announced %s, skipping", ev.Key())
		return nil
	}

	res := w.resolver.Resolve(ctx, ev)
	text := formatMessage(ev.Exchange, ev.Market, ev.Pair, bestURL(res.SourceURL, ev.URL), res, w.cfg.MaxExtraTimes)

	messageID := 0
	if w.notifier != nil {
		messageID, err = w.notifier.Post(text)
		if err != nil {
			return fmt.Errorf("failed to post notification: %w", err)
		}
	} else {
		logger.Info("Notification (dry): %s", strings.ReplaceAll(text, "\n", " | "))
	}

	rec := &models.PostedRecord{
		Exchange:  ev.Exchange,
		Market:    ev.Market,
		Pair:      ev.Pair,
		MessageID: messageID,
		ChatID:    w.cfg.ChatID,
		PostedAt:  time.Now().UTC(),
		HaveTime:  res.Primary != nil,
		SourceURL: bestURL(res.SourceURL, ev.URL),
		Title:     res.Title,
	}
	if res.Primary != nil {
		rec.BestTime = res.Primary.Display
	}
	return w.store.MarkPosted(rec)
}

// RunSweep periodically revisits announced pairs without a resolved
// time until ctx is cancelled.
func (w *Watcher) RunSweep(ctx context.Context) {
	logger.Info("Time-resolution sweep running (interval: %v)", w.cfg.SweepInterval)
	ticker := time.NewTicker(w.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweep stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep re-resolves every unresolved record once. A record flips to
// resolved only after its message was successfully edited, so a failed
// edit is retried on the next sweep.
func (w *Watcher) Sweep(ctx context.Context) {
	recs, err := w.store.ListUnresolved()
	if err != nil {
		logger.Error("Unresolved listing query failed: %v", err)
		return
	}
	if len(recs) == 0 {
		return
	}
	logger.Debug("Sweeping %d unresolved listings", len(recs))

	for _, rec := range recs {
		if ctx.Err() != nil {
			return
		}
		ev := models.ListingEvent{
			ID:           uuid.New().String(),
			Exchange:     rec.Exchange,
			Market:       rec.Market,
			Pair:         rec.Pair,
			URL:          rec.SourceURL,
			DiscoveredAt: rec.PostedAt,
		}
		res := w.resolver.Resolve(ctx, ev)
		if res.Primary == nil {
			continue
		}

		if w.notifier != nil && rec.MessageID != 0 {
			text := formatMessage(rec.Exchange, rec.Market, rec.Pair, bestURL(res.SourceURL, rec.SourceURL), res, w.cfg.MaxExtraTimes)
			if err := w.notifier.Edit(rec.MessageID, text); err != nil {
				logger.Warn("Edit failed for %s: %v", rec.Key(), err)
				continue
			}
		}
		if err := w.store.SetResolvedTime(rec.Key(), res.Primary.Display); err != nil {
			logger.Error("Resolve update failed for %s: %v", rec.Key(), err)
			continue
		}
		logger.Info("Resolved %s: %s", rec.Key(), res.Primary.Display)
	}
}

func filterUSDT(snap models.Snapshot) models.Snapshot {
	out := models.Snapshot{}
	for pair, url := range snap {
		if pair.Quote == "USDT" {
			out[pair] = url
		}
	}
	return out
}

func bestURL(candidates ...string) string {
	for _, u := range candidates {
		if u != "" {
			return u
		}
	}
	return ""
}

// formatMessage renders the notification text. The same renderer
// serves the initial post and later edits, so a resolved time slots
// into the existing message without reflowing it.
func formatMessage(exchangeName string, market models.Market, pair models.Pair, url string, res resolve.Result, maxExtra int) string {
	var b strings.Builder

	header := fmt.Sprintf("🚀 %s — %s", strings.ToUpper(exchangeName), strings.ToUpper(string(market)))
	if res.Title != "" {
		header += ", " + res.Title
	}
	b.WriteString(header)
	b.WriteByte('\n')

	fmt.Fprintf(&b, "📈 Pair: %s\n", pair.String())

	if res.Primary != nil {
		fmt.Fprintf(&b, "⏱ Open: %s\n", res.Primary.Display)
	} else {
		b.WriteString("⏱ Open: soon\n")
	}

	for i, extra := range res.Extras {
		if i >= maxExtra {
			break
		}
		label := "also"
		if extra.PublishTime {
			label = "posted"
		}
		fmt.Fprintf(&b, "• %s: %s\n", label, extra.Display)
	}

	if url != "" {
		fmt.Fprintf(&b, "🔗 %s", url)
	}
	return strings.TrimRight(b.String(), "\n")
}
