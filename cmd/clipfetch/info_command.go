package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipfetch/internal/api"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "info <url>",
		Short: "Fetch metadata for a media URL without downloading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := ctx.client().VideoInfo(cmd.Context(), api.VideoInfoRequest{
				URL:      args[0],
				Platform: platform,
			})
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Title:    %s\n", info.Title)
			if info.Channel != "" {
				fmt.Fprintf(stdout, "Channel:  %s\n", info.Channel)
			}
			if info.DurationText != "" {
				fmt.Fprintf(stdout, "Duration: %s\n", info.DurationText)
			}
			for _, count := range []struct {
				label string
				value *int64
			}{
				{"Views", info.ViewCount},
				{"Likes", info.LikeCount},
				{"Reposts", info.RepostCount},
				{"Comments", info.CommentCount},
			} {
				if count.value != nil {
					fmt.Fprintf(stdout, "%-9s %d\n", count.label+":", *count.value)
				}
			}
			if info.UploadDate != "" {
				fmt.Fprintf(stdout, "Uploaded: %s\n", info.UploadDate)
			}
			if desc := strings.TrimSpace(info.Description); desc != "" {
				fmt.Fprintf(stdout, "\n%s\n", desc)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Source platform hint")
	return cmd
}
