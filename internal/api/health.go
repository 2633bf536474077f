package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	sessions Pinger
	audit    Pinger
}

// NewHealthHandler creates a new health handler. A nil audit pinger omits the
// audit check.
func NewHealthHandler(sessions, audit Pinger) *HealthHandler {
	return &HealthHandler{sessions: sessions, audit: audit}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.sessions.Ping(ctx); err != nil {
		slog.Error("Health check failed", "dependency", "sessions", "error", err)
		status["status"] = "degraded"
		checks["sessions"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["sessions"] = "ok"
	}

	// Audit logging is best effort; an unreachable store degrades but does
	// not fail the check.
	if h.audit != nil {
		if err := h.audit.Ping(ctx); err != nil {
			slog.Warn("Health check failed", "dependency", "audit", "error", err)
			status["status"] = "degraded"
			checks["audit"] = "unreachable"
		} else {
			checks["audit"] = "ok"
		}
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
