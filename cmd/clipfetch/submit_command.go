package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipfetch/internal/api"
	"clipfetch/internal/downloads"
	"clipfetch/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var platform string
	var format string
	var wait bool
	var outputDir string

	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Submit a media URL for download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client := ctx.client()

			resp, err := client.Submit(cmd.Context(), api.DownloadRequest{
				URL:      args[0],
				Platform: platform,
				Format:   format,
			})
			if err != nil {
				return err
			}

			switch resp.Status {
			case "in_progress":
				fmt.Fprintf(stdout, "Attached to active download %s\n", resp.DownloadID)
			default:
				fmt.Fprintf(stdout, "Download %s started\n", resp.DownloadID)
			}

			if !wait {
				return nil
			}

			final, err := client.Await(cmd.Context(), resp.DownloadID)
			if err != nil {
				return err
			}
			if final.Status != string(queue.StatusCompleted) {
				message := strings.TrimSpace(final.Message)
				if message == "" {
					message = "download failed"
				}
				return fmt.Errorf("download %s failed: %s", resp.DownloadID, message)
			}
			fmt.Fprintf(stdout, "Download %s completed\n", resp.DownloadID)

			if outputDir == "" {
				return nil
			}
			saved, err := client.SaveFile(cmd.Context(), resp.DownloadID, outputDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Saved to %s\n", saved)
			return nil
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "", fmt.Sprintf("Source platform (%s)", strings.Join(downloads.SupportedPlatforms(), ", ")))
	cmd.Flags().StringVarP(&format, "format", "f", "", fmt.Sprintf("Output format (%s)", strings.Join(downloads.SupportedFormats(), ", ")))
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the download reaches a terminal state")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Save the produced file to this directory (implies --wait)")
	_ = cmd.MarkFlagRequired("platform")
	_ = cmd.MarkFlagRequired("format")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if outputDir != "" {
			wait = true
		}
	}
	return cmd
}
