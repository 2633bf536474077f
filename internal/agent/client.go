package agent

import (
	"context"

	"github.com/ashureev/agent-relay/internal/domain"
)

// Client is the remote agent service surface the relay depends on.
type Client interface {
	// GetAgent fetches the agent definition.
	GetAgent(ctx context.Context, agentID string) (*domain.Agent, error)

	// CreateThread starts a new conversation thread.
	CreateThread(ctx context.Context) (*domain.Thread, error)

	// CreateMessage appends a message to a thread.
	CreateMessage(ctx context.Context, threadID string, role domain.Role, content string) (*domain.Message, error)

	// CreateRun starts processing a thread's pending input with an agent.
	CreateRun(ctx context.Context, threadID, agentID string) (*domain.Run, error)

	// GetRun fetches the current state of a run.
	GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error)

	// CancelRun asks the service to stop a run.
	CancelRun(ctx context.Context, threadID, runID string) (*domain.Run, error)

	// ListMessages lists thread messages.
	ListMessages(ctx context.Context, threadID string, opts ListOptions) ([]domain.Message, error)

	// ListRuns lists thread runs.
	ListRuns(ctx context.Context, threadID string, opts ListOptions) ([]domain.Run, error)
}

// Ensure FoundryClient implements Client.
var _ Client = (*FoundryClient)(nil)
