// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Session store backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Port               string
	AllowedOrigins     []string
	MaxRequestBodySize int64
	LogLevel           slog.Level
	Agent              AgentConfig
	Audit              AuditConfig
	Session            SessionConfig
	RateLimit          RateLimitConfig
}

// AgentConfig identifies the remote agent and how to reach it.
type AgentConfig struct {
	Endpoint     string
	AgentID      string
	TenantID     string // optional; narrows credential resolution
	APIVersion   string
	Scope        string
	PollInterval time.Duration
	RunTimeout   time.Duration // 0 = no timeout beyond the request context
	HTTPTimeout  time.Duration
}

// AuditConfig controls the optional audit log store.
type AuditConfig struct {
	CosmosEndpoint string
	CosmosKey      string
	DatabaseName   string
	ContainerName  string
	SQLitePath     string
	QueueSize      int
}

// CosmosConfigured reports whether Cosmos DB credentials are present.
func (a AuditConfig) CosmosConfigured() bool {
	return a.CosmosEndpoint != "" && a.CosmosKey != ""
}

// Enabled reports whether any audit backend is configured.
func (a AuditConfig) Enabled() bool {
	return a.CosmosConfigured() || a.SQLitePath != ""
}

// SessionConfig controls the session -> thread mapping store.
type SessionConfig struct {
	Backend       string
	DBPath        string
	TTL           time.Duration
	SweepInterval time.Duration
}

// RateLimitConfig throttles chat requests per client.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv reads configuration from environment variables without validation,
// for tools that only need part of it.
func FromEnv() *Config {
	return &Config{
		Port:               getEnv("PORT", "5000"),
		AllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		LogLevel:           parseLevel(getEnv("LOG_LEVEL", "info")),
		Agent: AgentConfig{
			Endpoint:     strings.TrimSpace(getEnv("AZURE_ENDPOINT", "")),
			AgentID:      strings.TrimSpace(getEnv("AZURE_AGENT_ID", "")),
			TenantID:     strings.TrimSpace(getEnv("AZURE_TENANT_ID", "")),
			APIVersion:   getEnv("AZURE_AGENT_API_VERSION", "v1"),
			Scope:        getEnv("AZURE_AGENT_SCOPE", "https://ai.azure.com/.default"),
			PollInterval: getEnvDuration("AGENT_POLL_INTERVAL", time.Second),
			RunTimeout:   getEnvDuration("AGENT_RUN_TIMEOUT", 0),
			HTTPTimeout:  getEnvDuration("AGENT_HTTP_TIMEOUT", 60*time.Second),
		},
		Audit: AuditConfig{
			CosmosEndpoint: getEnv("COSMOS_ENDPOINT", ""),
			CosmosKey:      getEnv("COSMOS_KEY", ""),
			DatabaseName:   getEnv("COSMOS_DATABASE_NAME", "AgentLogsDB"),
			ContainerName:  getEnv("COSMOS_CONTAINER_NAME", "ThreadLogs"),
			SQLitePath:     getEnv("AUDIT_SQLITE_PATH", ""),
			QueueSize:      getEnvInt("AUDIT_QUEUE_SIZE", 256),
		},
		Session: SessionConfig{
			Backend:       strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendMemory)),
			DBPath:        getEnv("SESSION_DB_PATH", "./data/sessions.db"),
			TTL:           getEnvDuration("SESSION_TTL", 24*time.Hour),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Agent.Endpoint == "" || c.Agent.AgentID == "" {
		return fmt.Errorf("please set AZURE_ENDPOINT and AZURE_AGENT_ID environment variables")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Agent.PollInterval <= 0 {
		return fmt.Errorf("AGENT_POLL_INTERVAL must be > 0")
	}
	if c.Agent.RunTimeout < 0 {
		return fmt.Errorf("AGENT_RUN_TIMEOUT cannot be negative")
	}
	if c.Audit.QueueSize <= 0 {
		return fmt.Errorf("AUDIT_QUEUE_SIZE must be > 0")
	}
	switch c.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendSQLite:
		if c.Session.DBPath == "" {
			return fmt.Errorf("SESSION_DB_PATH cannot be empty with the sqlite session backend")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.Session.Backend)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
