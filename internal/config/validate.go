package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.DownloadDir == "" {
		problems = append(problems, "paths.download_dir is required")
	}
	if c.Paths.LogDir == "" {
		problems = append(problems, "paths.log_dir is required")
	}
	if c.Paths.APIBind == "" {
		problems = append(problems, "paths.api_bind is required")
	}
	if c.Tools.YtdlpBinary == "" {
		problems = append(problems, "tools.ytdlp_binary is required")
	}
	if c.Tools.DownloadTimeout <= 0 {
		problems = append(problems, "tools.download_timeout must be positive")
	}
	if c.Tools.InfoTimeout <= 0 {
		problems = append(problems, "tools.info_timeout must be positive")
	}
	if c.Workflow.MaxActive <= 0 {
		problems = append(problems, "workflow.max_active must be positive")
	}
	if c.Workflow.StallTimeout <= 0 {
		problems = append(problems, "workflow.stall_timeout must be positive")
	}
	if c.Workflow.JanitorInterval <= 0 {
		problems = append(problems, "workflow.janitor_interval must be positive")
	}
	if c.Workflow.RetentionMinutes <= 0 {
		problems = append(problems, "workflow.retention_minutes must be positive")
	}
	if c.Workflow.RetrievedRetentionSeconds <= 0 {
		problems = append(problems, "workflow.retrieved_retention_seconds must be positive")
	}
	if c.Workflow.HistoryRetentionHours <= 0 {
		problems = append(problems, "workflow.history_retention_hours must be positive")
	}

	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (use console or json)", c.Logging.Format))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
