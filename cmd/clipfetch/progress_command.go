package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "progress <download-id>",
		Short: "Show the current state of a download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client := ctx.client()

			if follow {
				final, err := client.Await(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, renderProgressLine(final.Status, final.Progress, final.Message))
				return nil
			}

			resp, err := client.Progress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, renderProgressLine(resp.Status, resp.Progress, resp.Message))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Poll until the download reaches a terminal state")
	return cmd
}

func renderProgressLine(status string, progress float64, message string) string {
	line := fmt.Sprintf("%-10s %5.1f%%", status, progress)
	if message = strings.TrimSpace(message); message != "" {
		line += "  " + message
	}
	return line
}
