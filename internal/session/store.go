// Package session maps browser session IDs to remote conversation threads.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/agent-relay/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Store persists session -> thread bindings.
type Store interface {
	// Get returns the session, or nil if none is stored.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)

	// PutIfAbsent stores s unless a binding already exists. It returns the
	// binding that is stored afterwards and whether s was inserted.
	PutIfAbsent(ctx context.Context, s *domain.Session) (*domain.Session, bool, error)

	// Touch refreshes the last activity time of a session.
	Touch(ctx context.Context, sessionID string, at time.Time) error

	// DeleteExpired removes sessions idle for longer than ttl.
	DeleteExpired(ctx context.Context, ttl time.Duration) (int64, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int64, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// createTimeout bounds a thread creation flight, which outlives the caller
// that started it.
const createTimeout = 2 * time.Minute

// CreateThreadFunc creates a remote thread for a new session.
type CreateThreadFunc func(ctx context.Context, sessionID string) (string, error)

// Resolver resolves session IDs to threads, creating at most one thread per
// session even under concurrent first requests.
type Resolver struct {
	store Store
	group singleflight.Group
	now   func() time.Time
}

// NewResolver creates a resolver over store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// Store returns the underlying store.
func (r *Resolver) Store() Store {
	return r.store
}

// Lookup returns the thread bound to sessionID without creating one.
func (r *Resolver) Lookup(ctx context.Context, sessionID string) (string, bool, error) {
	s, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return "", false, fmt.Errorf("get session: %w", err)
	}
	if s == nil {
		return "", false, nil
	}
	return s.ThreadID, true, nil
}

// Resolve returns the thread bound to sessionID, calling create when the
// session is new. The bool result is true when a thread was created.
// Creation is shared by concurrent callers and is not tied to any one
// caller's context; a caller whose ctx ends stops waiting without failing
// the others.
func (r *Resolver) Resolve(ctx context.Context, sessionID string, create CreateThreadFunc) (string, bool, error) {
	if s, err := r.store.Get(ctx, sessionID); err != nil {
		return "", false, fmt.Errorf("get session: %w", err)
	} else if s != nil {
		if err := r.store.Touch(ctx, sessionID, r.now()); err != nil {
			slog.Warn("Failed to refresh session activity", "session_id", sessionID, "error", err)
		}
		return s.ThreadID, false, nil
	}

	type result struct {
		threadID string
		created  bool
	}
	ch := r.group.DoChan(sessionID, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), createTimeout)
		defer cancel()

		// Another flight may have finished between our Get and Do.
		if s, err := r.store.Get(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("get session: %w", err)
		} else if s != nil {
			return result{threadID: s.ThreadID}, nil
		}

		threadID, err := create(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		now := r.now()
		stored, inserted, err := r.store.PutIfAbsent(ctx, &domain.Session{
			SessionID:  sessionID,
			ThreadID:   threadID,
			CreatedAt:  now,
			LastSeenAt: now,
		})
		if err != nil {
			return nil, fmt.Errorf("store session: %w", err)
		}
		if !inserted {
			slog.Warn("Session bound concurrently, discarding new thread",
				"session_id", sessionID,
				"discarded_thread_id", threadID,
				"thread_id", stored.ThreadID,
			)
			return result{threadID: stored.ThreadID}, nil
		}
		return result{threadID: threadID, created: true}, nil
	})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		out := res.Val.(result)
		return out.threadID, out.created, nil
	}
}
