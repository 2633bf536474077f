package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/agent-relay/internal/domain"
	"github.com/google/uuid"
)

// ThreadCreatedEntry is the payload of a thread_created document.
type ThreadCreatedEntry struct {
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
}

// MessageEntry is the payload of a message document.
type MessageEntry struct {
	MessageID string                `json:"message_id"`
	Role      string                `json:"role"`
	Content   []domain.ContentBlock `json:"content"`
	CreatedAt string                `json:"created_at"`
}

// RunEntry is the payload of a run document.
type RunEntry struct {
	RunID       string  `json:"run_id"`
	Status      string  `json:"status"`
	Model       *string `json:"model"`
	CreatedAt   string  `json:"created_at"`
	CompletedAt *string `json:"completed_at"`
}

// NewMessageEntry builds a MessageEntry, stamping now when the message has no
// creation time.
func NewMessageEntry(m domain.Message, now time.Time) MessageEntry {
	created := m.CreatedAt
	if created.IsZero() {
		created = now
	}
	content := m.TextBlocks()
	if content == nil {
		content = []domain.ContentBlock{}
	}
	return MessageEntry{
		MessageID: m.ID,
		Role:      string(m.Role),
		Content:   content,
		CreatedAt: domain.FormatTimestamp(created),
	}
}

// NewRunEntry builds a RunEntry.
func NewRunEntry(r domain.Run, now time.Time) RunEntry {
	created := r.CreatedAt
	if created.IsZero() {
		created = now
	}
	e := RunEntry{
		RunID:     r.ID,
		Status:    string(r.Status),
		CreatedAt: domain.FormatTimestamp(created),
	}
	if r.Model != "" {
		model := r.Model
		e.Model = &model
	}
	if r.CompletedAt != nil {
		completed := domain.FormatTimestamp(*r.CompletedAt)
		e.CompletedAt = &completed
	}
	return e
}

// Logger writes audit documents. A Logger without a store is disabled: writes
// return false and reads return empty results.
type Logger struct {
	store Store
	now   func() time.Time
}

// NewLogger creates a logger over store. A nil store disables the logger.
func NewLogger(store Store) *Logger {
	return &Logger{store: store, now: time.Now}
}

// Disabled returns a logger that never writes.
func Disabled() *Logger {
	return NewLogger(nil)
}

// Enabled reports whether a store is configured.
func (l *Logger) Enabled() bool {
	return l != nil && l.store != nil
}

// Location names the backing database and container.
func (l *Logger) Location() (string, string) {
	if !l.Enabled() {
		return "", ""
	}
	return l.store.Location()
}

// StoreLog writes one document and reports whether it was stored.
func (l *Logger) StoreLog(ctx context.Context, threadID string, logType domain.LogType, data any) bool {
	if !l.Enabled() {
		return false
	}
	doc, err := l.newDocument(threadID, logType, data)
	if err != nil {
		slog.Error("Error building audit log document", "thread_id", threadID, "log_type", logType, "error", err)
		return false
	}
	if err := l.store.Put(ctx, doc); err != nil {
		slog.Error("Error storing audit log", "thread_id", threadID, "log_type", logType, "error", err)
		return false
	}
	return true
}

// StoreMessage writes a message document.
func (l *Logger) StoreMessage(ctx context.Context, threadID string, m domain.Message) bool {
	return l.StoreLog(ctx, threadID, domain.LogTypeMessage, NewMessageEntry(m, l.now()))
}

// StoreRun writes a run document.
func (l *Logger) StoreRun(ctx context.Context, threadID string, r domain.Run) bool {
	return l.StoreLog(ctx, threadID, domain.LogTypeRun, NewRunEntry(r, l.now()))
}

// Record implements Recorder synchronously.
func (l *Logger) Record(threadID string, logType domain.LogType, data any) {
	l.StoreLog(context.Background(), threadID, logType, data)
}

func (l *Logger) newDocument(threadID string, logType domain.LogType, data any) (domain.LogDocument, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return domain.LogDocument{}, fmt.Errorf("marshal log data: %w", err)
	}
	return domain.LogDocument{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		LogType:   logType,
		Timestamp: domain.FormatTimestamp(l.now()),
		Data:      raw,
	}, nil
}

// GetLogs returns a thread's documents oldest first, or an empty list on error.
func (l *Logger) GetLogs(ctx context.Context, threadID string) []domain.LogDocument {
	if !l.Enabled() {
		return []domain.LogDocument{}
	}
	logs, err := l.store.ThreadLogs(ctx, threadID)
	if err != nil {
		slog.Error("Error retrieving audit logs", "thread_id", threadID, "error", err)
		return []domain.LogDocument{}
	}
	if logs == nil {
		logs = []domain.LogDocument{}
	}
	return logs
}

// ThreadIDs returns all distinct thread IDs, or an empty list on error.
func (l *Logger) ThreadIDs(ctx context.Context) []string {
	if !l.Enabled() {
		return []string{}
	}
	ids, err := l.store.ThreadIDs(ctx)
	if err != nil {
		slog.Error("Error retrieving audit threads", "error", err)
		return []string{}
	}
	return ids
}

// Stats aggregates the store. Unlike the other reads, errors are returned.
func (l *Logger) Stats(ctx context.Context) (domain.AuditStats, error) {
	if !l.Enabled() {
		return domain.AuditStats{LogTypes: []domain.LogTypeCount{}}, nil
	}
	stats, err := l.store.Stats(ctx)
	if err != nil {
		return domain.AuditStats{}, fmt.Errorf("audit stats: %w", err)
	}
	if stats.LogTypes == nil {
		stats.LogTypes = []domain.LogTypeCount{}
	}
	return stats, nil
}

// ThreadSummaries summarizes up to limit threads and returns the total number
// of threads in the store.
func (l *Logger) ThreadSummaries(ctx context.Context, limit int) ([]domain.ThreadSummary, int) {
	ids := l.ThreadIDs(ctx)
	n := len(ids)
	if limit > 0 && n > limit {
		n = limit
	}
	summaries := make([]domain.ThreadSummary, 0, n)
	for _, id := range ids[:n] {
		summaries = append(summaries, domain.Summarize(id, l.GetLogs(ctx, id)))
	}
	return summaries, len(ids)
}

// Ping checks store reachability.
func (l *Logger) Ping(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}
	return l.store.Ping(ctx)
}

// Close closes the store.
func (l *Logger) Close() error {
	if !l.Enabled() {
		return nil
	}
	return l.store.Close()
}
