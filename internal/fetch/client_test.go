package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	if cfg.RetryDelayBase == 0 {
		cfg.RetryDelayBase = time.Millisecond
	}
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := testClient(t, Config{})
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if !out.OK {
		t.Error("decoded payload mismatch")
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := testClient(t, Config{MaxRetries: 3})
	body, err := c.GetHTML(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetHTML: %v", err)
	}
	if body != "ok" || calls != 3 {
		t.Errorf("got body %q after %d calls", body, calls)
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(t, Config{MaxRetries: 3})
	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404")
	}
	if calls != 1 {
		t.Errorf("got %d calls, want 1", calls)
	}
}

func TestBlockedRequestFallsThroughScraper(t *testing.T) {
	blocked := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer blocked.Close()

	scraper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte("scraped"))
	}))
	defer scraper.Close()

	c := testClient(t, Config{ScraperURL: scraper.URL})
	body, err := c.GetHTML(context.Background(), blocked.URL)
	if err != nil {
		t.Fatalf("GetHTML: %v", err)
	}
	if body != "scraped" {
		t.Errorf("got %q, want scraped body", body)
	}
}

func TestScrapeTargetForms(t *testing.T) {
	cases := []struct {
		scraper string
		want    string
	}{
		{"https://sc.io/get?key=k&url={url}", "https://sc.io/get?key=k&url=https%3A%2F%2Fx.io%2Fa"},
		{"https://sc.io/get?target=", "https://sc.io/get?target=https%3A%2F%2Fx.io%2Fa"},
		{"https://sc.io/get?key=k", "https://sc.io/get?key=k&url=https%3A%2F%2Fx.io%2Fa"},
		{"https://sc.io/get", "https://sc.io/get?url=https%3A%2F%2Fx.io%2Fa"},
	}
	for _, tc := range cases {
		if got := scrapeTarget(tc.scraper, "https://x.io/a"); got != tc.want {
			t.Errorf("scrapeTarget(%q): got %q, want %q", tc.scraper, got, tc.want)
		}
	}
}
