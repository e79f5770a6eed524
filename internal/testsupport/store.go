package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"clipfetch/internal/config"
	"clipfetch/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob inserts a queued job row for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, url, platform, format string) *queue.Job {
	t.Helper()

	job := &queue.Job{
		ID:        uuid.NewString(),
		URL:       url,
		Platform:  platform,
		Format:    format,
		Key:       "key-" + uuid.NewString(),
		Status:    queue.StatusQueued,
		Message:   "queued",
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Insert(context.Background(), job); err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return job
}
