package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/agent-relay/internal/domain"
)

// runCancelTimeout bounds the cancel request sent after the caller gives up.
const runCancelTimeout = 10 * time.Second

// ProcessRun starts a run of agentID over threadID and polls it until it
// reaches a terminal status. Runs that ask for tool outputs are cancelled,
// since the relay registers no tools. If ctx ends first the run is cancelled
// so the thread accepts new messages.
func ProcessRun(ctx context.Context, c Client, threadID, agentID string, poll time.Duration) (*domain.Run, error) {
	run, err := c.CreateRun(ctx, threadID, agentID)
	if err != nil {
		return nil, err
	}
	if poll <= 0 {
		poll = time.Second
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	cancelled := false
	for !run.Status.IsTerminal() {
		select {
		case <-ctx.Done():
			abandonRun(ctx, c, threadID, run.ID)
			return run, fmt.Errorf("wait for run %s: %w", run.ID, ctx.Err())
		case <-ticker.C:
		}

		run, err = c.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return nil, err
		}

		if run.Status == domain.RunStatusRequiresAction && !cancelled {
			slog.Warn("Run requires action, cancelling", "thread_id", threadID, "run_id", run.ID)
			if _, err := c.CancelRun(ctx, threadID, run.ID); err != nil {
				return run, err
			}
			cancelled = true
		}
	}
	return run, nil
}

func abandonRun(ctx context.Context, c Client, threadID, runID string) {
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runCancelTimeout)
	defer cancel()

	if _, err := c.CancelRun(cancelCtx, threadID, runID); err != nil {
		slog.Warn("Failed to cancel abandoned run", "thread_id", threadID, "run_id", runID, "error", err)
		return
	}
	slog.Info("Cancelled abandoned run", "thread_id", threadID, "run_id", runID, "reason", ctx.Err())
}
