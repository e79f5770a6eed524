package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and clean the download history",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List download history entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Queue(cmd.Context(), statuses...)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(resp.Jobs) == 0 {
				fmt.Fprintln(stdout, "History is empty")
				return nil
			}

			rows := make([][]string, 0, len(resp.Jobs))
			for _, job := range resp.Jobs {
				detail := job.Message
				if job.Status == "failed" && job.ErrorMessage != "" {
					detail = job.ErrorMessage
				}
				rows = append(rows, []string{
					job.ID,
					job.Platform,
					job.Format,
					job.Status,
					fmt.Sprintf("%.0f%%", job.Progress),
					truncate(detail, 40),
				})
			}
			table := renderTable(
				[]string{"ID", "Platform", "Format", "Status", "Progress", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (queued, running, completed, failed)")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove history entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().ClearQueue(cmd.Context(), scope)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", resp.Removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "completed", "Which entries to remove (completed, failed, all)")
	return cmd
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
