// Package fetch provides the shared outbound HTTP client used by all
// exchange and announcement fetchers. One explicit client value
// carries headers, proxy, and timeout; per-request blocking failures
// are retried and hard-blocked responses fall through an ordered list
// of fetch strategies.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds the outbound HTTP settings.
type Config struct {
	Timeout        time.Duration
	Proxy          string
	ScraperURL     string
	MaxRetries     int
	RetryDelayBase time.Duration
	UserAgent      string
}

// Client performs GET requests with retry and strategy fallback.
type Client struct {
	httpClient *http.Client
	cfg        Config
	strategies []strategy
}

// strategy attempts one way of reaching a URL.
type strategy func(ctx context.Context, rawURL string) (*http.Response, error)

// NewClient builds the client. When cfg.ScraperURL is set, requests
// rejected with 403/503 are retried through the external scraper.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		cfg:        cfg,
	}
	c.strategies = []strategy{c.direct}
	if cfg.ScraperURL != "" {
		c.strategies = append(c.strategies, c.viaScraper)
	}
	return c, nil
}

func (c *Client) direct(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json,text/html,application/xhtml+xml,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	return c.httpClient.Do(req)
}

func (c *Client) viaScraper(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.direct(ctx, scrapeTarget(c.cfg.ScraperURL, rawURL))
}

// scrapeTarget wraps a blocked URL into the configured scraper
// endpoint, supporting a {url} placeholder and bare query forms.
func scrapeTarget(scraperURL, rawURL string) string {
	escaped := url.QueryEscape(rawURL)
	switch {
	case strings.Contains(scraperURL, "{url}"):
		return strings.ReplaceAll(scraperURL, "{url}", escaped)
	case strings.HasSuffix(scraperURL, "="):
		return scraperURL + escaped
	case strings.Contains(scraperURL, "?"):
		return scraperURL + "&url=" + escaped
	default:
		return scraperURL + "?url=" + escaped
	}
}

// Get fetches a URL, returning the response of the first strategy that
// yields a 2xx. Blocked responses (403/503) advance to the next
// strategy; transport errors and 5xx responses are retried with linear
// backoff.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.RetryDelayBase * time.Duration(attempt)):
			}
		}
		for _, try := range c.strategies {
			resp, err := try(ctx, rawURL)
			if err != nil {
				lastErr = err
				break // transport failure, next attempt
			}
			switch {
			case resp.StatusCode < 300:
				return resp, nil
			case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable:
				resp.Body.Close()
				lastErr = fmt.Errorf("blocked: %s", resp.Status)
				continue // next strategy
			case resp.StatusCode >= 500:
				resp.Body.Close()
				lastErr = fmt.Errorf("server error: %s", resp.Status)
			default:
				resp.Body.Close()
				return nil, fmt.Errorf("unexpected status %s for %s", resp.Status, rawURL)
			}
			break
		}
	}
	return nil, fmt.Errorf("max retries exceeded for %s: %w", rawURL, lastErr)
}

// GetJSON fetches a URL and decodes the JSON response body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", rawURL, err)
	}
	return nil
}

// GetHTML fetches a URL and returns the raw body as a string.
func (c *Client) GetHTML(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	return string(body), nil
}
