// Agent relay server: browser chat in, Azure AI Foundry agent out.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/agent-relay/internal/agent"
	"github.com/ashureev/agent-relay/internal/api"
	"github.com/ashureev/agent-relay/internal/audit"
	"github.com/ashureev/agent-relay/internal/config"
	"github.com/ashureev/agent-relay/internal/identity"
	"github.com/ashureev/agent-relay/internal/middleware"
	"github.com/ashureev/agent-relay/internal/session"
	"github.com/ashureev/agent-relay/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level.Set(cfg.LogLevel)

	slog.Info("Starting server", "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Agent service client. A bad endpoint or agent ID fails startup.
	client, err := agent.NewFoundryClientWithConfig(cfg.Agent, logger)
	if err != nil {
		slog.Error("Failed to initialize agent client", "error", err)
		os.Exit(1)
	}
	startupCtx, cancelStartup := context.WithTimeout(ctx, cfg.Agent.HTTPTimeout)
	agentInfo, err := client.GetAgent(startupCtx, cfg.Agent.AgentID)
	cancelStartup()
	if err != nil {
		slog.Error("Failed to fetch agent", "agent_id", cfg.Agent.AgentID, "error", err)
		os.Exit(1)
	}
	slog.Info("Agent connected", "agent_id", agentInfo.ID, "name", agentInfo.Name, "model", agentInfo.Model)

	// Session map.
	sessionStore, err := session.NewStoreWithConfig(cfg.Session)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := sessionStore.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()
	slog.Info("Session store ready", "backend", cfg.Session.Backend)

	session.StartTTLWorker(ctx, sessionStore, cfg.Session.TTL, cfg.Session.SweepInterval)

	// Audit logging (optional).
	auditLogger := audit.NewLoggerWithConfig(ctx, cfg.Audit)
	defer func() {
		if closeErr := auditLogger.Close(); closeErr != nil {
			slog.Error("Failed to close audit store", "error", closeErr)
		}
	}()
	auditQueue := audit.NewQueue(auditLogger, cfg.Audit.QueueSize)

	svc := agent.NewService(client, session.NewResolver(sessionStore), auditQueue, agent.ServiceConfig{
		AgentID:      cfg.Agent.AgentID,
		PollInterval: cfg.Agent.PollInterval,
		RunTimeout:   cfg.Agent.RunTimeout,
	})

	// Initialize handlers.
	apiHandler := api.NewHandler(svc, auditLogger, cfg.MaxRequestBodySize)
	var auditPinger api.Pinger
	if auditLogger.Enabled() {
		auditPinger = auditLogger
	}
	healthHandler := api.NewHealthHandler(sessionStore, auditPinger)
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	healthHandler.RegisterHealth(r)
	apiHandler.RegisterRoutes(r, middleware.RateLimit(limiter, identity.IPFromRequest))

	// Serve embedded chat UI.
	r.Handle("/*", web.Handler())

	// A chat request blocks until the agent run finishes, so there is no
	// WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// Flush pending audit entries before the store closes.
	auditQueue.Close()

	slog.Info("Server stopped successfully")
}
