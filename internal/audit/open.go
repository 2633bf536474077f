package audit

import (
	"context"
	"log/slog"

	"github.com/ashureev/agent-relay/internal/config"
)

// NewLoggerWithConfig opens the configured audit backend: Cosmos DB when its
// credentials are set, otherwise SQLite when a path is set. Connection
// failures are logged and leave auditing disabled.
func NewLoggerWithConfig(ctx context.Context, cfg config.AuditConfig) *Logger {
	switch {
	case cfg.CosmosConfigured():
		store, err := NewCosmos(ctx, CosmosConfig{
			Endpoint:  cfg.CosmosEndpoint,
			Key:       cfg.CosmosKey,
			Database:  cfg.DatabaseName,
			Container: cfg.ContainerName,
		})
		if err != nil {
			slog.Warn("Failed to initialize Cosmos DB, audit logging will be disabled", "error", err)
			return Disabled()
		}
		slog.Info("Cosmos DB audit logging enabled", "database", cfg.DatabaseName, "container", cfg.ContainerName)
		return NewLogger(store)

	case cfg.SQLitePath != "":
		store, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			slog.Warn("Failed to open SQLite audit store, audit logging will be disabled", "path", cfg.SQLitePath, "error", err)
			return Disabled()
		}
		slog.Info("SQLite audit logging enabled", "path", cfg.SQLitePath)
		return NewLogger(store)

	default:
		slog.Info("Audit logging disabled (COSMOS_ENDPOINT/COSMOS_KEY and AUDIT_SQLITE_PATH not set)")
		return Disabled()
	}
}
