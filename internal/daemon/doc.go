// Package daemon hosts the long-running clipfetch process: it enforces
// single-instance execution with a file lock, owns the download manager and
// job store lifecycles, and serves the HTTP API.
package daemon
