// Package preflight verifies the environment before the daemon accepts
// work: external binaries on PATH, download directory permissions, and free
// disk space. The daemon runs the checks at startup and the status surfaces
// reuse them.
package preflight
