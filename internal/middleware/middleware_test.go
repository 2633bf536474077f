package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("expected first two requests to be allowed")
	}
	if rl.Allow("a") {
		t.Fatal("expected third request to be rejected")
	}
	if !rl.Allow("b") {
		t.Fatal("expected other key to be allowed")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("expected request after window to be allowed")
	}
}

func TestRateLimiterEvictsIdleKeys(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 5, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("a")

	now = now.Add(2 * time.Minute)
	rl.evict()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.requests) != 0 {
		t.Fatalf("expected idle keys to be evicted, got %d", len(rl.requests))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 1, time.Minute)
	h := RateLimit(rl, func(r *http.Request) string { return r.RemoteAddr })(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("expected Retry-After 60, got %q", w.Header().Get("Retry-After"))
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/cosmos-stats", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("expected allowed origin to be echoed, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("expected credentials for explicit origin, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/cosmos-stats", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header for unknown origin, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"*"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("preflight should not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://any.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("wildcard origins must not allow credentials, got %q", got)
	}
}
