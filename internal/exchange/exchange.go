// Package exchange maps exchange REST APIs to feed snapshots and
// structured listing-time lookups. Dispatch is a static registry keyed
// by (exchange, market); adding an exchange means adding one entry.
package exchange

import (
	"context"
	"time"

	"cryptohornet/internal/fetch"
	"cryptohornet/internal/models"
)

// Fetcher returns the current snapshot of one feed.
type Fetcher func(ctx context.Context) (models.Snapshot, error)

// TimeSource resolves a listing time from an exchange's own API
// fields. The second return reports whether a time was found; absence
// is not an error.
type TimeSource interface {
	ListingTime(ctx context.Context, market models.Market, pair models.Pair) (models.TimeCandidate, bool, error)
}

// Registry holds the static (exchange, market) → Fetcher mapping and
// the per-exchange time sources.
type Registry struct {
	fetchers map[string]Fetcher
	times    map[string]TimeSource
}

// NewRegistry wires every supported exchange against the shared HTTP
// client.
func NewRegistry(client *fetch.Client) *Registry {
	binance := NewBinance(client)
	okx := NewOKX(client)
	gate := NewGate(client)
	bitget := NewBitget(client)
	mexc := NewMEXC(client)
	bingx := NewBingX(client)

	r := &Registry{
		fetchers: map[string]Fetcher{},
		times:    map[string]TimeSource{},
	}
	r.register("binance", models.MarketSpot, binance.Spot)
	r.register("binance", models.MarketFutures, binance.Futures)
	r.register("okx", models.MarketSpot, okx.Spot)
	r.register("okx", models.MarketFutures, okx.Futures)
	r.register("gate", models.MarketSpot, gate.Spot)
	r.register("gate", models.MarketFutures, gate.Futures)
	r.register("bitget", models.MarketSpot, bitget.Spot)
	r.register("bitget", models.MarketFutures, bitget.Futures)
	r.register("mexc", models.MarketSpot, mexc.Spot)
	r.register("mexc", models.MarketFutures, mexc.Futures)
	r.register("bingx", models.MarketSpot, bingx.Spot)

	r.times["binance"] = binance
	r.times["okx"] = okx
	r.times["gate"] = gate
	r.times["bitget"] = bitget
	r.times["mexc"] = mexc

	return r
}

func (r *Registry) register(exchange string, market models.Market, f Fetcher) {
	r.fetchers[models.FeedKey(exchange, market)] = f
}

// Fetcher returns the snapshot fetcher for one feed.
func (r *Registry) Fetcher(exchange string, market models.Market) (Fetcher, bool) {
	f, ok := r.fetchers[models.FeedKey(exchange, market)]
	return f, ok
}

// TimeSource returns the structured listing-time source of an
// exchange, when it has one.
func (r *Registry) TimeSource(exchange string) (TimeSource, bool) {
	ts, ok := r.times[exchange]
	return ts, ok
}

// epochCandidate renders an epoch-millisecond listing time in the
// exchange's own publication zone, with the zone label spelled out.
// The caller's zone is never involved.
func epochCandidate(msec int64, label string, offsetSec int) models.TimeCandidate {
	t := time.UnixMilli(msec).In(time.FixedZone(label, offsetSec))
	return models.TimeCandidate{
		Display: t.Format("2006-01-02 15:04") + " " + label,
		Instant: t,
	}
}
