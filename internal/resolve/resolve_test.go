package resolve

import (
	"context"
	"errors"
	"testing"

	"cryptohornet/internal/announce"
	"cryptohornet/internal/exchange"
	"cryptohornet/internal/models"
)

type fakeTimeSource struct {
	cand  models.TimeCandidate
	found bool
	err   error
	calls int
}

func (f *fakeTimeSource) ListingTime(ctx context.Context, market models.Market, pair models.Pair) (models.TimeCandidate, bool, error) {
	f.calls++
	return f.cand, f.found, f.err
}

type fakeTimes map[string]*fakeTimeSource

func (f fakeTimes) TimeSource(ex string) (exchange.TimeSource, bool) {
	ts, ok := f[ex]
	return ts, ok
}

type fakeAnns struct {
	byExchange map[string][]announce.Article
	fetched    []string
}

func (f *fakeAnns) Articles(ctx context.Context, ex string) []announce.Article {
	f.fetched = append(f.fetched, ex)
	return f.byExchange[ex]
}

func event(ex string, base string) models.ListingEvent {
	return models.ListingEvent{
		Exchange: ex,
		Market:   models.MarketSpot,
		Pair:     models.NewPair(base, "USDT"),
		URL:      "https://example.com/trade",
	}
}

func TestAPIFieldShortCircuits(t *testing.T) {
	ts := &fakeTimeSource{
		cand:  models.TimeCandidate{Display: "2025-10-08 06:00 UTC"},
		found: true,
	}
	anns := &fakeAnns{byExchange: map[string][]announce.Article{
		"gate": {{Symbols: []string{"ABC"}, Candidates: []models.TimeCandidate{{Display: "wrong"}}}},
	}}
	p := New(fakeTimes{"gate": ts}, anns, []string{"gate", "mexc"})

	res := p.Resolve(context.Background(), event("gate", "ABC"))
	if res.Primary == nil || res.Primary.Display != "2025-10-08 06:00 UTC" {
		t.Fatalf("primary %+v", res.Primary)
	}
	if len(anns.fetched) != 0 {
		t.Error("announcement scan must not run when the API field resolves")
	}
}

func TestFallsThroughToOwnAnnouncements(t *testing.T) {
	ts := &fakeTimeSource{found: false}
	anns := &fakeAnns{byExchange: map[string][]announce.Article{
		"gate": {
			{Symbols: []string{"OTHER"}, Candidates: []models.TimeCandidate{{Display: "skip"}}},
			{
				URL:     "https://gate.io/announcements/abc",
				Title:   "ABC listing",
				Symbols: []string{"ABC"},
				Candidates: []models.TimeCandidate{
					{Display: "2025-10-08 06:00 UTC+8"},
					{Display: "14:00 KST"},
					{Display: "2025-10-07 10:00 UTC", PublishTime: true},
				},
			},
		},
	}}
	p := New(fakeTimes{"gate": ts}, anns, []string{"gate", "mexc"})

	res := p.Resolve(context.Background(), event("gate", "ABC"))
	if ts.calls != 1 {
		t.Error("API lookup should run first")
	}
	if res.Primary == nil || res.Primary.Display != "2025-10-08 06:00 UTC+8" {
		t.Fatalf("primary %+v", res.Primary)
	}
	if len(res.Extras) != 2 {
		t.Fatalf("extras %v", res.Extras)
	}
	if res.SourceURL != "https://gate.io/announcements/abc" || res.Title != "ABC listing" {
		t.Errorf("source %q title %q", res.SourceURL, res.Title)
	}
}

func TestAPIErrorFallsThrough(t *testing.T) {
	ts := &fakeTimeSource{err: errors.New("boom")}
	anns := &fakeAnns{byExchange: map[string][]announce.Article{
		"gate": {{
			Symbols:    []string{"ABC"},
			Candidates: []models.TimeCandidate{{Display: "2025-10-08 06:00 UTC+8"}},
		}},
	}}
	p := New(fakeTimes{"gate": ts}, anns, []string{"gate"})

	res := p.Resolve(context.Background(), event("gate", "ABC"))
	if res.Primary == nil || res.Primary.Display != "2025-10-08 06:00 UTC+8" {
		t.Fatalf("primary %+v", res.Primary)
	}
}

func TestGenericScanSkipsOwnExchange(t *testing.T) {
	anns := &fakeAnns{byExchange: map[string][]announce.Article{
		"binance": {{
			Symbols:    []string{"ABC"},
			Candidates: []models.TimeCandidate{{Display: "2025-10-08 06:00 UTC"}},
		}},
	}}
	p := New(fakeTimes{}, anns, []string{"binance", "gate", "mexc"})

	res := p.Resolve(context.Background(), event("gate", "ABC"))
	if res.Primary == nil || res.Primary.Display != "2025-10-08 06:00 UTC" {
		t.Fatalf("primary %+v", res.Primary)
	}
	// Own exchange first, then the scan list minus the own exchange.
	want := []string{"gate", "binance", "mexc"}
	if len(anns.fetched) > len(want) {
		t.Fatalf("fetched %v", anns.fetched)
	}
	for i, ex := range anns.fetched {
		if ex != want[i] {
			t.Fatalf("fetch order %v, want prefix of %v", anns.fetched, want)
		}
	}
}

func TestPublishTimeOnlyYieldsNoPrimary(t *testing.T) {
	anns := &fakeAnns{byExchange: map[string][]announce.Article{
		"gate": {{
			Symbols:    []string{"ABC"},
			Candidates: []models.TimeCandidate{{Display: "2025-10-07 10:00 UTC", PublishTime: true}},
		}},
	}}
	p := New(fakeTimes{}, anns, []string{"gate"})

	res := p.Resolve(context.Background(), event("gate", "ABC"))
	if res.Primary != nil {
		t.Errorf("publish time must not become the primary: %+v", res.Primary)
	}
	if len(res.Extras) != 1 {
		t.Errorf("extras %v", res.Extras)
	}
}

func TestNothingFound(t *testing.T) {
	p := New(fakeTimes{}, &fakeAnns{}, []string{"gate", "mexc"})
	res := p.Resolve(context.Background(), event("gate", "ABC"))
	if res.Primary != nil || len(res.Extras) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}
