// Package downloads orchestrates the download job lifecycle.
//
// The Manager owns all live job state: the dedup registry that makes
// check-then-create atomic, the snapshot cache that answers progress polls,
// and one goroutine per active job driving the external fetcher. SQLite rows
// (internal/queue) trail the in-memory state as durable history. A janitor
// loop fails stalled jobs, evicts expired terminal jobs along with their
// files, and prunes old history rows.
package downloads
