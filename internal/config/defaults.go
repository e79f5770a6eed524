package config

const (
	defaultDownloadDir = "~/.local/share/clipfetch/downloads"
	defaultLogDir      = "~/.local/share/clipfetch/logs"
	defaultAPIBind     = "127.0.0.1:3002"

	defaultYtdlpBinary     = "yt-dlp"
	defaultDownloadTimeout = 300
	defaultInfoTimeout     = 60

	defaultMaxActive                 = 5
	defaultStallTimeout              = 30
	defaultJanitorInterval           = 10
	defaultRetentionMinutes          = 30
	defaultRetrievedRetentionSeconds = 60
	defaultHistoryRetentionHours     = 24

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Tools: Tools{
			YtdlpBinary:     defaultYtdlpBinary,
			DownloadTimeout: defaultDownloadTimeout,
			InfoTimeout:     defaultInfoTimeout,
		},
		Workflow: Workflow{
			MaxActive:                 defaultMaxActive,
			StallTimeout:              defaultStallTimeout,
			JanitorInterval:           defaultJanitorInterval,
			RetentionMinutes:          defaultRetentionMinutes,
			RetrievedRetentionSeconds: defaultRetrievedRetentionSeconds,
			HistoryRetentionHours:     defaultHistoryRetentionHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
