package config

import (
	"os"
	"strings"
)

// Environment overrides applied after file decoding. They exist so container
// and systemd deployments can adjust a setting without editing the TOML file.
const (
	envDownloadDir    = "CLIPFETCH_DOWNLOAD_DIR"
	envLogDir         = "CLIPFETCH_LOG_DIR"
	envAPIBind        = "CLIPFETCH_API_BIND"
	envYtdlpBinary    = "CLIPFETCH_YTDLP_BINARY"
	envFFmpegLocation = "CLIPFETCH_FFMPEG_LOCATION"
	envLogLevel       = "CLIPFETCH_LOG_LEVEL"
)

func (c *Config) applyEnvOverrides() {
	setFromEnv(envDownloadDir, &c.Paths.DownloadDir)
	setFromEnv(envLogDir, &c.Paths.LogDir)
	setFromEnv(envAPIBind, &c.Paths.APIBind)
	setFromEnv(envYtdlpBinary, &c.Tools.YtdlpBinary)
	setFromEnv(envFFmpegLocation, &c.Tools.FFmpegLocation)
	setFromEnv(envLogLevel, &c.Logging.Level)
}

func setFromEnv(key string, target *string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*target = value
	}
}
