package agent

import (
	"errors"

	"github.com/ashureev/agent-relay/internal/domain"
)

var (
	// ErrEmptyMessage is returned when a chat message is blank.
	ErrEmptyMessage = errors.New("message is required")
	// ErrNoResponse is returned when a run finishes without an assistant reply.
	ErrNoResponse = errors.New("no response from agent")
	// ErrRunFailed matches any RunFailedError.
	ErrRunFailed = errors.New("agent run failed")
)

// RunFailedError reports a run that ended in the failed state.
type RunFailedError struct {
	Run *domain.Run
}

func (e *RunFailedError) Error() string {
	var lastErr *domain.RunError
	if e.Run != nil {
		lastErr = e.Run.LastError
	}
	return "Agent run failed: " + lastErr.String()
}

// Is reports whether target is ErrRunFailed.
func (e *RunFailedError) Is(target error) bool {
	return target == ErrRunFailed
}
