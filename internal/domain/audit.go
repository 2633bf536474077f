package domain

import (
	"encoding/json"
	"time"
)

// LogType categorizes audit log documents.
type LogType string

const (
	LogTypeMessage       LogType = "message"
	LogTypeRun           LogType = "run"
	LogTypeThreadCreated LogType = "thread_created"
)

// TimestampLayout is a fixed-width UTC layout so timestamps sort lexically.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// LogDocument is a write-once audit record partitioned by thread ID.
type LogDocument struct {
	ID        string          `json:"id"`
	ThreadID  string          `json:"thread_id"`
	LogType   LogType         `json:"log_type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// LogTypeCount is the number of documents of one log type.
type LogTypeCount struct {
	LogType LogType `json:"log_type"`
	Count   int64   `json:"count"`
}

// AuditStats aggregates the whole audit store.
type AuditStats struct {
	TotalLogs    int64          `json:"total_logs"`
	TotalThreads int            `json:"total_threads"`
	LogTypes     []LogTypeCount `json:"log_types"`
}

// ThreadSummary describes the audit history of one thread.
type ThreadSummary struct {
	ThreadID      string  `json:"thread_id"`
	MessageCount  int     `json:"message_count"`
	TotalLogs     int     `json:"total_logs"`
	FirstActivity *string `json:"first_activity"`
	LastActivity  *string `json:"last_activity"`
}

// Summarize builds a ThreadSummary from the thread's documents.
func Summarize(threadID string, logs []LogDocument) ThreadSummary {
	s := ThreadSummary{ThreadID: threadID, TotalLogs: len(logs)}
	var first, last string
	for _, l := range logs {
		if l.LogType == LogTypeMessage {
			s.MessageCount++
		}
		if l.Timestamp == "" {
			continue
		}
		if first == "" || l.Timestamp < first {
			first = l.Timestamp
		}
		if l.Timestamp > last {
			last = l.Timestamp
		}
	}
	if first != "" {
		s.FirstActivity = &first
		s.LastActivity = &last
	}
	return s
}
