package session

import (
	"fmt"

	"github.com/ashureev/agent-relay/internal/config"
)

// NewStoreWithConfig opens the configured session backend.
func NewStoreWithConfig(cfg config.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case config.SessionBackendMemory, "":
		return NewMemoryStore(), nil
	case config.SessionBackendSQLite:
		return NewSQLite(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
