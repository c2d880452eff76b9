package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cryptohornet/internal/fetch"
	"cryptohornet/internal/models"
)

func newTestClient(t *testing.T) *fetch.Client {
	t.Helper()
	client, err := fetch.NewClient(fetch.Config{
		Timeout:        5 * time.Second,
		MaxRetries:     1,
		RetryDelayBase: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("fetch.NewClient: %v", err)
	}
	return client
}

func TestBinanceSpotSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[
			{"status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"},
			{"status":"BREAK","baseAsset":"OLD","quoteAsset":"USDT"},
			{"status":"TRADING","baseAsset":"eth","quoteAsset":"usdt"}
		]}`))
	}))
	defer srv.Close()

	b := NewBinance(newTestClient(t))
	b.SpotURL = srv.URL

	snap, err := b.Spot(context.Background())
	if err != nil {
		t.Fatalf("Spot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(snap))
	}
	btc := models.NewPair("BTC", "USDT")
	if snap[btc] != "https://www.binance.com/en/trade/BTC_USDT" {
		t.Errorf("unexpected URL %q", snap[btc])
	}
	if _, ok := snap[models.NewPair("ETH", "USDT")]; !ok {
		t.Error("lowercase assets should normalize to uppercase")
	}
	if _, ok := snap[models.NewPair("OLD", "USDT")]; ok {
		t.Error("non-trading symbol must be excluded")
	}
}

func TestBinanceFuturesListingTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[
			{"status":"TRADING","contractType":"PERPETUAL","baseAsset":"ABC","quoteAsset":"USDT","onboardDate":1759903200000}
		]}`))
	}))
	defer srv.Close()

	b := NewBinance(newTestClient(t))
	b.FuturesURL = srv.URL

	c, ok, err := b.ListingTime(context.Background(), models.MarketFutures, models.NewPair("ABC", "USDT"))
	if err != nil {
		t.Fatalf("ListingTime: %v", err)
	}
	if !ok {
		t.Fatal("expected a candidate")
	}
	// 1759903200000 ms = 2025-10-08 06:00:00 UTC.
	if c.Display != "2025-10-08 06:00 UTC" {
		t.Errorf("got %q", c.Display)
	}
	if !c.Instant.Equal(time.Date(2025, 10, 8, 6, 0, 0, 0, time.UTC)) {
		t.Errorf("instant off: %v", c.Instant)
	}

	if _, ok, _ := b.ListingTime(context.Background(), models.MarketSpot, models.NewPair("ABC", "USDT")); ok {
		t.Error("spot lookup must report no candidate")
	}
}

func TestGateSpotListingTimeZone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"ABC_USDT","base":"ABC","quote":"USDT","trade_status":"tradable","buy_start":1759896000,"sell_start":1759903200}`))
	}))
	defer srv.Close()

	g := NewGate(newTestClient(t))
	g.BaseURL = srv.URL

	c, ok, err := g.ListingTime(context.Background(), models.MarketSpot, models.NewPair("ABC", "USDT"))
	if err != nil {
		t.Fatalf("ListingTime: %v", err)
	}
	if !ok {
		t.Fatal("expected a candidate")
	}
	// 1759903200 s = 2025-10-08 06:00 UTC = 14:00 in UTC+8.
	if c.Display != "2025-10-08 14:00 UTC+8" {
		t.Errorf("got %q", c.Display)
	}
}

func TestOKXFuturesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"instId":"BTC-USDT-SWAP","state":"live","listTime":"1569398400000"},
			{"instId":"DEAD-USDT-SWAP","state":"suspend","listTime":""}
		]}`))
	}))
	defer srv.Close()

	o := NewOKX(newTestClient(t))
	o.BaseURL = srv.URL

	snap, err := o.Futures(context.Background())
	if err != nil {
		t.Fatalf("Futures: %v", err)
	}
	if len(snap) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(snap))
	}
	if snap[models.NewPair("BTC", "USDT")] != "https://www.okx.com/trade-swap/btc-usdt-swap" {
		t.Errorf("unexpected URL %q", snap[models.NewPair("BTC", "USDT")])
	}
}

func TestBitgetFuturesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"symbol":"BTCUSDT_UMCBL","launchTime":"1569398400000"},
			{"symbol":"WEIRD_UMCBL","launchTime":""}
		]}`))
	}))
	defer srv.Close()

	b := NewBitget(newTestClient(t))
	b.BaseURL = srv.URL

	snap, err := b.Futures(context.Background())
	if err != nil {
		t.Fatalf("Futures: %v", err)
	}
	if len(snap) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(snap))
	}
	if _, ok := snap[models.NewPair("BTC", "USDT")]; !ok {
		t.Error("BTCUSDT_UMCBL should map to BTC/USDT")
	}
}

func TestMEXCSpotNumericStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[
			{"status":"1","baseAsset":"ABC","quoteAsset":"USDT"},
			{"status":"TRADING","baseAsset":"DEF","quoteAsset":"USDT"},
			{"status":"3","baseAsset":"OFF","quoteAsset":"USDT"}
		]}`))
	}))
	defer srv.Close()

	m := NewMEXC(newTestClient(t))
	m.SpotURL = srv.URL

	snap, err := m.Spot(context.Background())
	if err != nil {
		t.Fatalf("Spot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(snap))
	}
	if _, ok := snap[models.NewPair("OFF", "USDT")]; ok {
		t.Error("status 3 must be excluded")
	}
}

func TestBingXSymbolShapes(t *testing.T) {
	cases := []struct {
		in   string
		base string
		ok   bool
	}{
		{"BTC-USDT", "BTC", true},
		{"ETH_USDT", "ETH", true},
		{"XRPUSDT", "XRP", true},
		{"USDT", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		pair, ok := splitBingXSymbol(tc.in)
		if ok != tc.ok {
			t.Errorf("%q: ok=%v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && pair.Base != tc.base {
			t.Errorf("%q: base=%q, want %q", tc.in, pair.Base, tc.base)
		}
	}
}

func TestRegistryWiring(t *testing.T) {
	r := NewRegistry(newTestClient(t))

	if _, ok := r.Fetcher("binance", models.MarketSpot); !ok {
		t.Error("binance spot missing")
	}
	if _, ok := r.Fetcher("bingx", models.MarketFutures); ok {
		t.Error("bingx futures must not be registered")
	}
	if _, ok := r.TimeSource("okx"); !ok {
		t.Error("okx time source missing")
	}
	if _, ok := r.TimeSource("bingx"); ok {
		t.Error("bingx has no structured time source")
	}
}
