package session

import (
	"context"
	"log/slog"
	"time"
)

// StartTTLWorker runs a background goroutine that periodically removes
// sessions idle for longer than ttl. A non-positive ttl disables eviction.
func StartTTLWorker(ctx context.Context, store Store, ttl, interval time.Duration) {
	if ttl <= 0 {
		slog.Info("Session TTL worker disabled", "ttl", ttl)
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session TTL worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, store, ttl)
			case <-ctx.Done():
				slog.Info("Session TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, store Store, ttl time.Duration) {
	n, err := store.DeleteExpired(ctx, ttl)
	if err != nil {
		slog.Error("Session TTL worker failed to delete expired sessions", "error", err)
		return
	}
	if n == 0 {
		return
	}
	remaining, err := store.Count(ctx)
	if err != nil {
		slog.Warn("Failed to count sessions", "error", err)
	}
	slog.Info("Expired sessions evicted", "count", n, "remaining", remaining, "ttl", ttl)
}
