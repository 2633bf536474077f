package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ashureev/agent-relay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithConfigDisabledByDefault(t *testing.T) {
	logger := NewLoggerWithConfig(context.Background(), config.AuditConfig{})
	assert.False(t, logger.Enabled())
}

func TestNewLoggerWithConfigSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	logger := NewLoggerWithConfig(context.Background(), config.AuditConfig{SQLitePath: path})
	t.Cleanup(func() { _ = logger.Close() })

	require.True(t, logger.Enabled())
	database, container := logger.Location()
	assert.Equal(t, path, database)
	assert.Equal(t, "thread_logs", container)
}

func TestNewLoggerWithConfigBadSQLitePathDisables(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	logger := NewLoggerWithConfig(context.Background(), config.AuditConfig{SQLitePath: filepath.Join(blocker, "audit.db")})
	assert.False(t, logger.Enabled())
}
