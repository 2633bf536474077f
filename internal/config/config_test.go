package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("AZURE_ENDPOINT", "https://example.services.ai.azure.com/api/projects/demo")
	t.Setenv("AZURE_AGENT_ID", "asst_123")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("expected default port 5000, got %q", cfg.Port)
	}
	if cfg.Agent.APIVersion != "v1" {
		t.Errorf("expected api version v1, got %q", cfg.Agent.APIVersion)
	}
	if cfg.Agent.RunTimeout != 0 {
		t.Errorf("expected no run timeout by default, got %s", cfg.Agent.RunTimeout)
	}
	if cfg.Audit.Enabled() {
		t.Error("expected audit to be disabled without credentials")
	}
	if cfg.Audit.DatabaseName != "AgentLogsDB" || cfg.Audit.ContainerName != "ThreadLogs" {
		t.Errorf("unexpected cosmos names: %s/%s", cfg.Audit.DatabaseName, cfg.Audit.ContainerName)
	}
	if cfg.Session.Backend != SessionBackendMemory {
		t.Errorf("expected memory session backend, got %q", cfg.Session.Backend)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected info log level, got %s", cfg.LogLevel)
	}
}

func TestLoadRequiresAgentSettings(t *testing.T) {
	t.Setenv("AZURE_ENDPOINT", "")
	t.Setenv("AZURE_AGENT_ID", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when agent settings are missing")
	}
	if !strings.Contains(err.Error(), "AZURE_AGENT_ID") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("COSMOS_ENDPOINT", "https://acct.documents.azure.com:443/")
	t.Setenv("COSMOS_KEY", "secret")
	t.Setenv("SESSION_BACKEND", "SQLite")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("AGENT_RUN_TIMEOUT", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://chat.example.com")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Audit.CosmosConfigured() {
		t.Error("expected cosmos to be configured")
	}
	if cfg.Session.Backend != SessionBackendSQLite {
		t.Errorf("expected sqlite backend, got %q", cfg.Session.Backend)
	}
	if cfg.Session.TTL != 90*time.Minute {
		t.Errorf("expected 90m ttl, got %s", cfg.Session.TTL)
	}
	if cfg.Agent.RunTimeout != 2*time.Minute {
		t.Errorf("expected 2m run timeout, got %s", cfg.Agent.RunTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://chat.example.com" {
		t.Errorf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %s", cfg.LogLevel)
	}
}

func TestValidateRejectsUnknownSessionBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_BACKEND", "redis")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown session backend")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("AUDIT_QUEUE_SIZE", "lots")
	t.Setenv("SESSION_SWEEP_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Audit.QueueSize != 256 {
		t.Errorf("expected default queue size, got %d", cfg.Audit.QueueSize)
	}
	if cfg.Session.SweepInterval != 5*time.Minute {
		t.Errorf("expected default sweep interval, got %s", cfg.Session.SweepInterval)
	}
}
