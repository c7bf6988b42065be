package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ats-job-pipeline/internal/config"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(config.Config{RequestTimeout: 5 * time.Second, MaxRetries: 5})
	c.Backoff = func(int) time.Duration { return 0 }
	return c
}

func TestGetJSONRetriesExhausted(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(t).GetJSON(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := hits.Load(); got != 5 {
		t.Fatalf("attempts = %d, want 5", got)
	}
}

func TestGetJSONRetryThenSuccess(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := testClient(t).GetJSON(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("body = %q", body)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

func TestGetJSONTerminalStatusNoRetry(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(t).GetJSON(context.Background(), srv.URL)
	var terminal *TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("error = %v, want *TerminalError", err)
	}
	if terminal.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", terminal.Status)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
}

func TestGetJSONSendsUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent header")
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	if _, err := testClient(t).GetJSON(context.Background(), srv.URL); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
}
