package domain

import (
	"strings"
	"time"
)

// Role identifies the author of a thread message.
type Role string

const (
	// RoleUser marks messages posted by the browser user.
	RoleUser Role = "user"
	// RoleAssistant marks messages produced by the agent.
	RoleAssistant Role = "assistant"
)

// RunStatus is the lifecycle state of an agent run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusExpired        RunStatus = "expired"
)

// IsTerminal returns true once the run can no longer change state.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	default:
		return false
	}
}

// Agent is the remote agent definition.
type Agent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

// Thread is a remote conversation context.
type Thread struct {
	ID        string
	CreatedAt time.Time
}

// ContentBlock is one piece of message content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// FileCitation references a file the agent cited in a reply.
type FileCitation struct {
	FileID string `json:"file_id"`
}

// Message is a thread message as produced by the agent service.
type Message struct {
	ID            string
	Role          Role
	Content       []ContentBlock
	FileCitations []FileCitation
	CreatedAt     time.Time
}

// TextBlocks returns the text content blocks in order.
func (m *Message) TextBlocks() []ContentBlock {
	var out []ContentBlock
	for _, c := range m.Content {
		if c.Type == "text" {
			out = append(out, c)
		}
	}
	return out
}

// LastText returns the final text block, which carries the complete answer
// when the agent appends notes or tool summaries.
func (m *Message) LastText() string {
	blocks := m.TextBlocks()
	if len(blocks) == 0 {
		return ""
	}
	return blocks[len(blocks)-1].Text
}

// IsAssistant reports whether the message was authored by the agent.
func (m *Message) IsAssistant() bool {
	return strings.EqualFold(string(m.Role), string(RoleAssistant))
}

// RunError is the vendor error attached to a failed run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RunError) String() string {
	if e == nil {
		return "unknown error"
	}
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// Run is one invocation of the agent over a thread's pending input.
type Run struct {
	ID          string
	ThreadID    string
	Status      RunStatus
	Model       string
	CreatedAt   time.Time
	CompletedAt *time.Time
	LastError   *RunError
}
