package session

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/agent-relay/internal/domain"
)

// MemoryStore is an in-process Store guarded by a mutex.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]domain.Session),
		now:      time.Now,
	}
}

// Get returns a copy of the stored session.
func (m *MemoryStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// PutIfAbsent stores s unless the session is already bound.
func (m *MemoryStore) PutIfAbsent(_ context.Context, s *domain.Session) (*domain.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[s.SessionID]; ok {
		return &existing, false, nil
	}
	m.sessions[s.SessionID] = *s
	stored := *s
	return &stored, true, nil
}

// Touch refreshes LastSeenAt.
func (m *MemoryStore) Touch(_ context.Context, sessionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.LastSeenAt = at
		m.sessions[sessionID] = s
	}
	return nil
}

// DeleteExpired removes idle sessions.
func (m *MemoryStore) DeleteExpired(_ context.Context, ttl time.Duration) (int64, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.Expired(ttl, now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Count returns the number of sessions.
func (m *MemoryStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.sessions)), nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
