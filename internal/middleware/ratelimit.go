package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is a sliding-window limiter keyed by client.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter creates a rate limiter and starts its eviction goroutine,
// which stops when ctx is done.
func NewRateLimiter(ctx context.Context, limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
	go rl.evictLoop(ctx)
	return rl
}

// Allow records a request for key and reports whether it is within the limit.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	recent := pruneBefore(r.requests[key], now.Add(-r.window))
	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}
	r.requests[key] = append(recent, now)
	return true
}

func (r *RateLimiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(r.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.evict()
		}
	}
}

// evict drops keys with no requests inside the window.
func (r *RateLimiter) evict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.window)
	for key, times := range r.requests {
		fresh := pruneBefore(times, cutoff)
		if len(fresh) == 0 {
			delete(r.requests, key)
		} else {
			r.requests[key] = fresh
		}
	}
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	var fresh []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}

// RateLimit rejects requests over the limit with 429. keyFn selects the
// client key, typically the remote IP.
func RateLimit(rl *RateLimiter, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if !rl.Allow(key) {
				slog.Warn("Rate limit exceeded", "client", key, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error": "rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
