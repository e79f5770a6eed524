// Package api defines the HTTP wire types shared by the daemon and the CLI,
// plus the client the CLI uses to talk to a running daemon.
package api
