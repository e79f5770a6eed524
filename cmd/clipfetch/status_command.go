package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipfetch/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			status, err := ctx.client().Status(cmd.Context())
			if err != nil {
				if api.IsTransportError(err) {
					for _, line := range renderSectionHeader("Daemon", colorize) {
						fmt.Fprintln(stdout, line)
					}
					fmt.Fprintln(stdout, renderStatusLine("Daemon", statusError, "not reachable at "+ctx.apiAddress(), colorize))
					return nil
				}
				return err
			}

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
			if status.StartedAt != "" {
				fmt.Fprintln(stdout, renderStatusLine("Started", statusInfo, status.StartedAt, colorize))
			}
			fmt.Fprintln(stdout, renderStatusLine("Active downloads", statusInfo, fmt.Sprintf("%d of %d", status.Active, status.MaxActive), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Download dir", statusInfo, status.DownloadDir, colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, dep := range status.Dependencies {
				if dep.Available {
					message := "Ready"
					if dep.Command != "" {
						message = fmt.Sprintf("Ready (command: %s)", dep.Command)
					}
					fmt.Fprintln(stdout, renderStatusLine(dep.Name, statusOK, message, colorize))
					continue
				}
				detail := dep.Detail
				if detail == "" {
					detail = "not available"
				}
				kind := statusError
				if dep.Optional {
					kind = statusWarn
				}
				fmt.Fprintln(stdout, renderStatusLine(dep.Name, kind, detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("History", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildQueueStatusRows(status.Queue)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "History is empty")
				return nil
			}
			table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(stdout, table)
			return nil
		},
	}
}

func buildQueueStatusRows(stats api.QueueStats) [][]string {
	if stats.Total == 0 {
		return nil
	}
	rows := [][]string{}
	for _, entry := range []struct {
		label string
		count int
	}{
		{"queued", stats.Queued},
		{"running", stats.Running},
		{"completed", stats.Completed},
		{"failed", stats.Failed},
	} {
		if entry.count > 0 {
			rows = append(rows, []string{entry.label, strconv.Itoa(entry.count)})
		}
	}
	rows = append(rows, []string{"total", strconv.Itoa(stats.Total)})
	return rows
}
