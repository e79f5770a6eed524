// Command clipfetch is the CLI for the clipfetch download daemon: it can run
// the daemon in the foreground and submit, track, and retrieve downloads over
// the HTTP API.
package main
