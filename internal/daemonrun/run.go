// Package daemonrun wires configuration, storage, the fetch tool, and the
// daemon together into a runnable process. The clipfetchd binary and the
// `clipfetch serve` command share it.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"clipfetch/internal/config"
	"clipfetch/internal/daemon"
	"clipfetch/internal/downloads"
	"clipfetch/internal/logging"
	"clipfetch/internal/queue"
	"clipfetch/internal/services/ytdlp"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides the configured level when non-empty.
	LogLevel string
}

// Run starts the clipfetch daemon and blocks until the context is cancelled
// or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "clipfetchd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}

	var toolOpts []ytdlp.Option
	if cfg.Tools.FFmpegLocation != "" {
		toolOpts = append(toolOpts, ytdlp.WithFFmpegLocation(cfg.Tools.FFmpegLocation))
	}
	tool, err := ytdlp.New(cfg.Tools.YtdlpBinary, cfg.Tools.DownloadTimeout, cfg.Tools.InfoTimeout, toolOpts...)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("init fetch tool: %w", err)
	}

	manager := downloads.NewManager(cfg, store, tool, logger)
	d, err := daemon.New(cfg, store, logger, manager, tool)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("clipfetch daemon shutting down")
	d.Stop()
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
