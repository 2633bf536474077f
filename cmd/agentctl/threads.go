package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/ashureev/agent-relay/internal/audit"
	"github.com/ashureev/agent-relay/internal/config"
	"github.com/ashureev/agent-relay/internal/domain"
	"github.com/spf13/cobra"
)

var errAuditDisabled = errors.New("audit store is not configured (set COSMOS_ENDPOINT/COSMOS_KEY or AUDIT_SQLITE_PATH)")

func newThreadsCmd() *cobra.Command {
	var (
		limit   int
		asJSON  bool
		showLog string
	)

	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List audited threads",
		Long:  "Summarizes the most recently active threads in the audit store. Use --logs to dump one thread's documents.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := audit.NewLoggerWithConfig(cmd.Context(), config.FromEnv().Audit)
			defer closeAuditStore(logger)
			if !logger.Enabled() {
				return errAuditDisabled
			}
			if showLog != "" {
				return runThreadLogs(cmd, logger, showLog)
			}
			return runThreads(cmd, logger, limit, asJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of threads to summarize")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().StringVar(&showLog, "logs", "", "print every audit document for this thread ID")
	return cmd
}

func runThreads(cmd *cobra.Command, logger *audit.Logger, limit int, asJSON bool) error {
	summaries, total := logger.ThreadSummaries(cmd.Context(), limit)
	out := cmd.OutOrStdout()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"threads":       summaries,
			"total_threads": total,
		})
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "THREAD\tMESSAGES\tLOGS\tFIRST\tLAST")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", s.ThreadID, s.MessageCount, s.TotalLogs, orDash(s.FirstActivity), orDash(s.LastActivity))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d of %d threads\n", len(summaries), total)
	return nil
}

func runThreadLogs(cmd *cobra.Command, logger *audit.Logger, threadID string) error {
	logs := logger.GetLogs(cmd.Context(), threadID)
	if logs == nil {
		logs = []domain.LogDocument{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(logs)
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func closeAuditStore(c io.Closer) {
	if closeErr := c.Close(); closeErr != nil {
		slog.Error("Failed to close audit store", "error", closeErr)
	}
}
