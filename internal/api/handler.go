// Package api provides HTTP handlers for the agent relay.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ashureev/agent-relay/internal/agent"
	"github.com/ashureev/agent-relay/internal/audit"
	"github.com/go-chi/chi/v5"
)

// ChatService is the relay surface the handlers depend on.
type ChatService interface {
	Chat(ctx context.Context, sessionID, message string) (*agent.ChatResult, error)
	Lookup(ctx context.Context, sessionID string) (string, bool, error)
	History(ctx context.Context, threadID string) (*agent.ThreadHistory, error)
}

// Handler provides common handler utilities.
type Handler struct {
	chat        ChatService
	audit       *audit.Logger
	maxBodySize int64
}

// NewHandler creates a new Handler. A nil audit logger is treated as disabled.
func NewHandler(chat ChatService, auditLogger *audit.Logger, maxBodySize int64) *Handler {
	if auditLogger == nil {
		auditLogger = audit.Disabled()
	}
	if maxBodySize <= 0 {
		maxBodySize = 1 << 20
	}
	return &Handler{
		chat:        chat,
		audit:       auditLogger,
		maxBodySize: maxBodySize,
	}
}

// RegisterRoutes registers the relay API routes. chatMiddleware wraps only
// the chat endpoint.
func (h *Handler) RegisterRoutes(r chi.Router, chatMiddleware ...func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.With(chatMiddleware...).Post("/chat", h.Chat)
		r.Post("/new-session", h.NewSession)
		r.Get("/cosmos-stats", h.CosmosStats)
		r.Get("/all-threads", h.AllThreads)
		r.Post("/thread-logs", h.ThreadLogs)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads a size-limited JSON body into v.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
