package domain

import (
	"testing"
	"time"
)

func TestSummarizeCountsMessagesAndActivityWindow(t *testing.T) {
	logs := []LogDocument{
		{LogType: LogTypeThreadCreated, Timestamp: "2025-01-01T10:00:00.000000Z"},
		{LogType: LogTypeMessage, Timestamp: "2025-01-01T10:00:01.000000Z"},
		{LogType: LogTypeRun, Timestamp: "2025-01-01T10:00:05.000000Z"},
		{LogType: LogTypeMessage, Timestamp: "2025-01-01T10:00:06.000000Z"},
	}

	s := Summarize("thread_1", logs)
	if s.MessageCount != 2 {
		t.Fatalf("expected 2 messages, got %d", s.MessageCount)
	}
	if s.TotalLogs != 4 {
		t.Fatalf("expected 4 logs, got %d", s.TotalLogs)
	}
	if s.FirstActivity == nil || *s.FirstActivity != "2025-01-01T10:00:00.000000Z" {
		t.Fatalf("unexpected first activity: %v", s.FirstActivity)
	}
	if s.LastActivity == nil || *s.LastActivity != "2025-01-01T10:00:06.000000Z" {
		t.Fatalf("unexpected last activity: %v", s.LastActivity)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize("thread_1", nil)
	if s.FirstActivity != nil || s.LastActivity != nil {
		t.Fatal("expected nil activity for empty thread")
	}
}

func TestFormatTimestampSortsLexically(t *testing.T) {
	a := FormatTimestamp(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))
	b := FormatTimestamp(time.Date(2025, 1, 1, 10, 0, 0, 500_000_000, time.UTC))
	if !(a < b) {
		t.Fatalf("expected %q < %q", a, b)
	}
}

func TestRunStatusIsTerminal(t *testing.T) {
	for _, s := range []RunStatus{RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired} {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []RunStatus{RunStatusQueued, RunStatusInProgress, RunStatusRequiresAction, RunStatusCancelling} {
		if s.IsTerminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestMessageLastTextAndRole(t *testing.T) {
	m := Message{
		Role: "Assistant",
		Content: []ContentBlock{
			{Type: "text", Text: "first"},
			{Type: "image_file"},
			{Type: "text", Text: "final"},
		},
	}
	if !m.IsAssistant() {
		t.Fatal("expected role match to be case-insensitive")
	}
	if got := m.LastText(); got != "final" {
		t.Fatalf("expected final, got %q", got)
	}
}
