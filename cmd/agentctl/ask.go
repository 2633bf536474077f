package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/agent-relay/internal/agent"
	"github.com/ashureev/agent-relay/internal/config"
	"github.com/ashureev/agent-relay/internal/domain"
	"github.com/spf13/cobra"
)

// newAgentClient is replaced in tests.
var newAgentClient = func(cfg config.AgentConfig) (agent.Client, error) {
	return agent.NewFoundryClientWithConfig(cfg, slog.Default())
}

func newAskCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the agent a single question in a new thread",
		Long:  "Creates a new thread, posts the question, waits for the run to finish, and prints the conversation oldest first.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client, err := newAgentClient(cfg.Agent)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return runAsk(ctx, cmd, client, cfg.Agent, strings.Join(args, " "))
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "give up waiting for the agent after this long")
	return cmd
}

func runAsk(ctx context.Context, cmd *cobra.Command, client agent.Client, cfg config.AgentConfig, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return agent.ErrEmptyMessage
	}
	out := cmd.OutOrStdout()

	a, err := client.GetAgent(ctx, cfg.AgentID)
	if err != nil {
		return err
	}

	thread, err := client.CreateThread(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created thread, ID: %s\n", thread.ID)

	if _, err := client.CreateMessage(ctx, thread.ID, domain.RoleUser, question); err != nil {
		return err
	}

	run, err := agent.ProcessRun(ctx, client, thread.ID, a.ID, cfg.PollInterval)
	if err != nil {
		return err
	}
	if run.Status == domain.RunStatusFailed {
		fmt.Fprintf(out, "Run failed: %s\n", run.LastError.String())
		return errors.New("agent run failed")
	}

	msgs, err := client.ListMessages(ctx, thread.ID, agent.ListOptions{Order: agent.SortAscending})
	if err != nil {
		return err
	}
	for i := range msgs {
		if len(msgs[i].TextBlocks()) == 0 {
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", msgs[i].Role, msgs[i].LastText())
	}
	return nil
}
