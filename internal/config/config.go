package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DownloadDir string `toml:"download_dir"`
	LogDir      string `toml:"log_dir"`
	APIBind     string `toml:"api_bind"`
}

// Tools contains configuration for the external fetch tooling.
type Tools struct {
	YtdlpBinary    string `toml:"ytdlp_binary"`
	FFmpegLocation string `toml:"ffmpeg_location"`
	// DownloadTimeout caps a single fetch in seconds; jobs exceeding it fail.
	DownloadTimeout int `toml:"download_timeout"`
	// InfoTimeout caps a metadata probe in seconds.
	InfoTimeout int `toml:"info_timeout"`
}

// Workflow contains job orchestration timing and limits.
type Workflow struct {
	// MaxActive limits concurrently running downloads; submissions beyond it
	// are rejected with a busy error.
	MaxActive int `toml:"max_active"`
	// StallTimeout fails a running job that reported no progress for this
	// many seconds.
	StallTimeout    int `toml:"stall_timeout"`
	JanitorInterval int `toml:"janitor_interval"`
	// RetentionMinutes keeps terminal jobs retrievable after completion.
	RetentionMinutes int `toml:"retention_minutes"`
	// RetrievedRetentionSeconds shortens the window once the file has been
	// fetched at least once.
	RetrievedRetentionSeconds int `toml:"retrieved_retention_seconds"`
	// HistoryRetentionHours bounds how long terminal rows stay in the job
	// history database.
	HistoryRetentionHours int `toml:"history_retention_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipfetch.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Tools    Tools    `toml:"tools"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default config location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipfetch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. When no file exists at
// the resolved location, defaults are returned with exists=false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipfetch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DownloadDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DownloadTimeout returns the per-job wall clock limit.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Tools.DownloadTimeout) * time.Second
}

// InfoTimeout returns the metadata probe limit.
func (c *Config) InfoTimeout() time.Duration {
	return time.Duration(c.Tools.InfoTimeout) * time.Second
}

// StallTimeout returns the no-progress limit for running jobs.
func (c *Config) StallTimeout() time.Duration {
	return time.Duration(c.Workflow.StallTimeout) * time.Second
}

// JanitorInterval returns the cadence of the maintenance sweep.
func (c *Config) JanitorInterval() time.Duration {
	return time.Duration(c.Workflow.JanitorInterval) * time.Second
}

// Retention returns how long terminal jobs stay retrievable.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Workflow.RetentionMinutes) * time.Minute
}

// RetrievedRetention returns the shortened window after a successful retrieval.
func (c *Config) RetrievedRetention() time.Duration {
	return time.Duration(c.Workflow.RetrievedRetentionSeconds) * time.Second
}

// HistoryRetention returns how long terminal rows stay in the history store.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.Workflow.HistoryRetentionHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
