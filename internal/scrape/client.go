package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"ats-job-pipeline/internal/config"
)

// userAgents is the rotation pool for outbound requests.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 Safari/605.1.15",
}

// TerminalError marks an HTTP failure that must not be retried
// (non-200 statuses outside the retryable set).
type TerminalError struct {
	Status int
	URL    string
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.URL)
}

// retryableStatus reports whether a status code is worth another attempt.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client issues JSON GETs against ATS APIs with user-agent rotation,
// per-request proxy rotation, and bounded retry with exponential
// backoff. The backoff schedule is injectable for deterministic tests.
type Client struct {
	httpClient *http.Client
	maxRetries int
	// Backoff returns the wait after a failed attempt (1-based).
	Backoff func(attempt int) time.Duration
}

// NewClient builds a client from config. When proxy credentials and a
// pool are configured, every request goes through a randomly chosen
// authenticated proxy, rotated per request rather than per company.
func NewClient(cfg config.Config) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyUser != "" && cfg.ProxyPass != "" && len(cfg.ProxyList) > 0 {
		proxies := append([]string(nil), cfg.ProxyList...)
		user, pass := cfg.ProxyUser, cfg.ProxyPass
		transport.Proxy = func(*http.Request) (*url.URL, error) {
			host := proxies[rand.Intn(len(proxies))]
			return &url.URL{
				Scheme: "http",
				User:   url.UserPassword(user, pass),
				Host:   host,
			}, nil
		}
	}

	base := cfg.BackoffBase
	if base <= 1 {
		base = 1.5
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		maxRetries: maxRetries,
		Backoff: func(attempt int) time.Duration {
			jitter := time.Duration(rand.Int63n(int64(time.Second)))
			return time.Duration(math.Pow(base, float64(attempt))*float64(time.Second)) + jitter
		},
	}
}

// GetJSON fetches url, retrying transient failures (429/5xx and
// transport errors) up to the configured attempt budget. A non-200
// status outside the retryable set returns a *TerminalError at once.
func (c *Client) GetJSON(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		body, err := c.getOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		var terminal *TerminalError
		if errors.As(err, &terminal) {
			return nil, err
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.Backoff(attempt)):
		}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %s: %w", c.maxRetries, rawURL, lastErr)
}

func (c *Client) getOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TerminalError{URL: rawURL}
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "application/json, text/html")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	}
	if retryableStatus(resp.StatusCode) {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, rawURL)
	}
	return nil, &TerminalError{Status: resp.StatusCode, URL: rawURL}
}
