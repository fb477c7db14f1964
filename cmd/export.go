// File: cmd/export.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/formpilot/formpilot/api/schemas"
	"github.com/formpilot/formpilot/internal/export"
	"github.com/formpilot/formpilot/internal/observability"
	"github.com/formpilot/formpilot/internal/transcript"
)

// newExportCmd creates the `export` command, which renders a report from a
// previously persisted conversation without opening a browser.
func newExportCmd() *cobra.Command {
	var outputPath string
	var format string

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Generate a session report from the stored transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if cfg.Transcript.URL == "" {
				return fmt.Errorf("transcript database is not configured (FORMPILOT_TRANSCRIPT_URL)")
			}
			if format == "" {
				format = cfg.Export.Format
			}

			pool, err := pgxpool.New(ctx, cfg.Transcript.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to transcript database: %w", err)
			}
			defer pool.Close()

			store, err := transcript.New(ctx, pool, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize transcript store: %w", err)
			}

			msgs, err := store.Load(ctx, cfg.Planner.SessionKey)
			if err != nil {
				return fmt.Errorf("failed to load transcript: %w", err)
			}
			if len(msgs) == 0 {
				return fmt.Errorf("no stored conversation for session %q", cfg.Planner.SessionKey)
			}

			reporter, err := export.New(format, outputPath)
			if err != nil {
				return err
			}
			defer reporter.Close()

			report := reportFromTranscript(cfg.Planner.SessionKey, msgs)
			if err := reporter.Write(report); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			return nil
		},
	}

	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path. If unset, the report prints to stdout.")
	exportCmd.Flags().StringVarP(&format, "format", "f", "", "Report format, 'json' or 'text'. Defaults to the configured format.")
	return exportCmd
}

// reportFromTranscript reconstructs session statistics from the stored
// messages alone. The live action ledger is gone once the process that ran
// the session exits, so counts are derived from the rendered tool calls.
func reportFromTranscript(sessionKey string, msgs []schemas.ChatMessage) *export.Report {
	stats := schemas.SessionStats{
		SessionID:     sessionKey,
		TotalMessages: len(msgs),
	}
	for _, m := range msgs {
		if m.Role == schemas.RoleUser && stats.FirstMessage == "" {
			stats.FirstMessage = m.Content
		}
		for _, tc := range m.ToolCalls {
			stats.TotalActions++
			if strings.HasPrefix(tc.Result, "["+string(schemas.StatusFailure)+"]") {
				stats.FailedActions++
			}
		}
	}
	if len(msgs) > 0 {
		first, last := msgs[0].Timestamp, msgs[len(msgs)-1].Timestamp
		if !first.IsZero() && !last.IsZero() {
			stats.StartedAt = first
			stats.Duration = last.Sub(first)
		}
	}
	return &export.Report{Stats: stats, Messages: msgs}
}
