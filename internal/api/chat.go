package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/agent-relay/internal/agent"
	"github.com/ashureev/agent-relay/internal/identity"
	"github.com/go-chi/chi/v5/middleware"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// Chat relays one message to the agent and returns its reply.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := h.decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "Message is required")
		return
	}

	sessionID, ok := identity.NormalizeSessionID(req.SessionID)
	if !ok {
		Error(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	res, err := h.chat.Chat(r.Context(), sessionID, req.Message)
	if err != nil {
		status, msg := chatErrorResponse(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Chat request failed",
				"request_id", middleware.GetReqID(r.Context()),
				"session_id", sessionID,
				"error", err,
			)
		}
		Error(w, status, msg)
		return
	}

	JSON(w, http.StatusOK, chatResponse{Response: res.Response, SessionID: res.SessionID})
}

func chatErrorResponse(err error) (int, string) {
	var runErr *agent.RunFailedError
	switch {
	case errors.Is(err, agent.ErrEmptyMessage):
		return http.StatusBadRequest, "Message is required"
	case errors.As(err, &runErr):
		return http.StatusInternalServerError, runErr.Error()
	case errors.Is(err, agent.ErrNoResponse):
		return http.StatusInternalServerError, "No response from agent"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// NewSession issues a fresh session ID. No thread is created until the first
// chat message.
func (h *Handler) NewSession(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"session_id": identity.NewSessionID()})
}
