// Package logging constructs the slog loggers used across clipfetch.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for machine consumption. Log output is fanned out to stdout
// and the daemon log file. Helper constructors attach the standard component
// and job attributes so related records can be filtered together.
package logging
