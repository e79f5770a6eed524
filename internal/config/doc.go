// Package config loads, validates, and normalizes clipfetch configuration.
//
// Configuration lives in a TOML file (default ~/.config/clipfetch/config.toml)
// with sections per subsystem:
//   - [paths]: download/log directories and the API bind address
//   - [tools]: yt-dlp binary, optional ffmpeg location, tool timeouts
//   - [workflow]: job concurrency, stall/retention windows, janitor cadence
//   - [logging]: log format and level
//
// Load applies defaults for any omitted value, expands ~ in path fields, and
// validates the result, so downstream packages never see a partially
// populated Config.
package config
