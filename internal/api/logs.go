package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/agent-relay/internal/domain"
	"github.com/ashureev/agent-relay/internal/identity"
)

const (
	maxThreadSummaries = 50
	auditDisabledMsg   = "Cosmos DB is not configured"
	sourceAgent        = "agent"
	sourceCosmos       = "cosmos"
)

// CosmosStats reports aggregate audit store statistics.
func (h *Handler) CosmosStats(w http.ResponseWriter, r *http.Request) {
	if !h.audit.Enabled() {
		JSON(w, http.StatusOK, map[string]interface{}{
			"enabled": false,
			"message": auditDisabledMsg,
		})
		return
	}

	stats, err := h.audit.Stats(r.Context())
	if err != nil {
		slog.Error("Failed to read audit stats", "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	database, container := h.audit.Location()
	JSON(w, http.StatusOK, map[string]interface{}{
		"enabled":       true,
		"total_logs":    stats.TotalLogs,
		"total_threads": stats.TotalThreads,
		"log_types":     stats.LogTypes,
		"database":      database,
		"container":     container,
	})
}

// AllThreads summarizes the most recently active audited threads.
func (h *Handler) AllThreads(w http.ResponseWriter, r *http.Request) {
	if !h.audit.Enabled() {
		JSON(w, http.StatusOK, map[string]interface{}{
			"enabled": false,
			"threads": []domain.ThreadSummary{},
			"message": auditDisabledMsg,
		})
		return
	}

	summaries, total := h.audit.ThreadSummaries(r.Context(), maxThreadSummaries)
	JSON(w, http.StatusOK, map[string]interface{}{
		"enabled":       true,
		"threads":       summaries,
		"total_threads": total,
	})
}

type threadLogsRequest struct {
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
}

type messageLog struct {
	ID            string                `json:"id"`
	Role          string                `json:"role"`
	CreatedAt     *string               `json:"created_at"`
	Content       []domain.ContentBlock `json:"content"`
	FileCitations []domain.FileCitation `json:"file_citations,omitempty"`
}

type runInfo struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	CreatedAt   *string `json:"created_at"`
	CompletedAt *string `json:"completed_at"`
	Model       *string `json:"model"`
}

// ThreadLogs returns the history of the thread bound to a session, either
// from the agent service or from the audit store.
func (h *Handler) ThreadLogs(w http.ResponseWriter, r *http.Request) {
	var req threadLogsRequest
	if err := h.decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Source == "" {
		req.Source = sourceAgent
	}

	sessionID, ok := identity.NormalizeSessionID(req.SessionID)
	if sessionID == "" {
		Error(w, http.StatusBadRequest, "Session ID is required")
		return
	}
	if !ok {
		Error(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	ctx := r.Context()
	threadID, found, err := h.chat.Lookup(ctx, sessionID)
	if err != nil {
		slog.Error("Failed to look up session", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		JSON(w, http.StatusOK, map[string]interface{}{
			"logs":      []interface{}{},
			"thread_id": nil,
			"source":    req.Source,
		})
		return
	}

	if req.Source == sourceCosmos && h.audit.Enabled() {
		logs := h.audit.GetLogs(ctx, threadID)
		messages := 0
		for _, l := range logs {
			if l.LogType == domain.LogTypeMessage {
				messages++
			}
		}
		JSON(w, http.StatusOK, map[string]interface{}{
			"logs":           logs,
			"thread_id":      threadID,
			"source":         sourceCosmos,
			"total_messages": messages,
		})
		return
	}

	hist, err := h.chat.History(ctx, threadID)
	if err != nil {
		slog.Error("Failed to fetch thread history", "thread_id", threadID, "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	logs := make([]messageLog, 0, len(hist.Messages))
	for _, m := range hist.Messages {
		content := m.TextBlocks()
		if content == nil {
			content = []domain.ContentBlock{}
		}
		logs = append(logs, messageLog{
			ID:            m.ID,
			Role:          string(m.Role),
			CreatedAt:     isoTime(m.CreatedAt),
			Content:       content,
			FileCitations: m.FileCitations,
		})
	}

	runs := make([]runInfo, 0, len(hist.Runs))
	for _, run := range hist.Runs {
		info := runInfo{
			ID:        run.ID,
			Status:    string(run.Status),
			CreatedAt: isoTime(run.CreatedAt),
		}
		if run.CompletedAt != nil {
			info.CompletedAt = isoTime(*run.CompletedAt)
		}
		if run.Model != "" {
			model := run.Model
			info.Model = &model
		}
		runs = append(runs, info)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"logs":           logs,
		"thread_id":      threadID,
		"run_info":       runs,
		"total_messages": len(logs),
	})
}

func isoTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
