// Package queue persists download job records to SQLite.
//
// The store is the durable history of jobs the daemon has seen; the live
// scheduling state (dedup index, abort handles, progress snapshots) is owned
// by internal/downloads and kept in memory. Rows survive restarts so the
// queue listing and cleanup endpoints can report on past work, and a startup
// sweep marks jobs a previous process left unfinished as failed.
package queue
