// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// IsSQLiteBusyError checks if the error is a SQLITE_BUSY error.
// This occurs when the database is locked by another connection.
func IsSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY")
}

// IsSQLiteLockedError checks if the error is a "database is locked" error.
func IsSQLiteLockedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}

// IsSQLiteConflictError checks if the error is either a SQLITE_BUSY
// or "database is locked" error.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	return IsSQLiteBusyError(err) || IsSQLiteLockedError(err)
}

// RetryOnConflict runs fn up to maxRetries times, backing off exponentially
// from baseDelay while fn fails with a SQLite concurrency error.
func RetryOnConflict(ctx context.Context, op string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil || !IsSQLiteConflictError(err) {
			return err
		}
		if i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("SQLite busy, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
