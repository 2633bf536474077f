// Package domain contains core domain types for the agent relay.
package domain

import (
	"time"
)

// Session binds a browser-generated session ID to a remote conversation thread.
type Session struct {
	SessionID  string    `json:"session_id"`
	ThreadID   string    `json:"thread_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Expired reports whether the session has been idle longer than ttl.
// A non-positive ttl never expires.
func (s *Session) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.LastSeenAt) > ttl
}
