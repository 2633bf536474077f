// Package audit persists best-effort thread audit logs to a document store.
package audit

import (
	"context"

	"github.com/ashureev/agent-relay/internal/domain"
)

// Store is a write-once document store partitioned by thread ID.
type Store interface {
	// Put writes one document.
	Put(ctx context.Context, doc domain.LogDocument) error

	// ThreadLogs returns a thread's documents ordered by timestamp ascending.
	ThreadLogs(ctx context.Context, threadID string) ([]domain.LogDocument, error)

	// ThreadIDs returns the distinct thread IDs in the store, most recently
	// active first.
	ThreadIDs(ctx context.Context) ([]string, error)

	// Stats aggregates counts across the whole store.
	Stats(ctx context.Context) (domain.AuditStats, error)

	// Location names the database and container backing the store.
	Location() (database, container string)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
