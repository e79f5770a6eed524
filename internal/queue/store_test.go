package queue_test

import (
	"context"
	"testing"
	"time"

	"clipfetch/internal/queue"
	"clipfetch/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://youtube.com/watch?v=abc", "youtube", "mp4")

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.URL != job.URL {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
	if fetched.Status != queue.StatusQueued {
		t.Fatalf("expected queued status, got %s", fetched.Status)
	}
}

func TestGetByIDReturnsNilWhenAbsent(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	job, err := store.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for unknown id, got %#v", job)
	}
}

func TestUpdatePersistsTerminalFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "https://youtube.com/watch?v=abc", "youtube", "mp3")
	job.Status = queue.StatusRunning
	job.SetProgress(55.5, "[download]  55.5%")
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	job.SetCompleted("/downloads/abc/track.mp3", time.Now())
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s", fetched.Status)
	}
	if fetched.Percent != 100 {
		t.Fatalf("expected percent forced to 100, got %v", fetched.Percent)
	}
	if fetched.OutputPath != "/downloads/abc/track.mp3" {
		t.Fatalf("unexpected output path: %q", fetched.OutputPath)
	}
	if fetched.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	queued := testsupport.NewJob(t, store, "https://youtube.com/watch?v=a", "youtube", "mp4")
	failed := testsupport.NewJob(t, store, "https://youtube.com/watch?v=b", "youtube", "mp4")
	failed.SetFailed("network error", time.Now())
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}

	onlyFailed, err := store.List(ctx, queue.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(onlyFailed) != 1 || onlyFailed[0].ID != failed.ID {
		t.Fatalf("expected failed job only, got %#v", onlyFailed)
	}
	_ = queued
}

func TestStatsCountsPerStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewJob(t, store, "https://youtube.com/watch?v=a", "youtube", "mp4")
	running := testsupport.NewJob(t, store, "https://youtube.com/watch?v=b", "youtube", "mp4")
	running.Status = queue.StatusRunning
	if err := store.Update(ctx, running); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Queued != 1 || stats.Running != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestFailInterruptedSweepsActiveJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	queued := testsupport.NewJob(t, store, "https://youtube.com/watch?v=a", "youtube", "mp4")
	running := testsupport.NewJob(t, store, "https://youtube.com/watch?v=b", "youtube", "mp4")
	running.Status = queue.StatusRunning
	if err := store.Update(ctx, running); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	done := testsupport.NewJob(t, store, "https://youtube.com/watch?v=c", "youtube", "mp4")
	done.SetCompleted("/downloads/c/video.mp4", time.Now())
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	swept, err := store.FailInterrupted(ctx)
	if err != nil {
		t.Fatalf("FailInterrupted failed: %v", err)
	}
	if swept != 2 {
		t.Fatalf("expected 2 swept jobs, got %d", swept)
	}

	for _, id := range []string{queued.ID, running.ID} {
		job, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status != queue.StatusFailed || job.ErrorMessage != queue.InterruptedReason {
			t.Fatalf("expected interrupted failure, got %#v", job)
		}
	}

	untouched, err := store.GetByID(ctx, done.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != queue.StatusCompleted {
		t.Fatalf("completed job must survive the sweep, got %s", untouched.Status)
	}
}

func TestDeleteTerminalBefore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	old := testsupport.NewJob(t, store, "https://youtube.com/watch?v=a", "youtube", "mp4")
	old.SetFailed("network error", time.Now())
	if err := store.Update(ctx, old); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	active := testsupport.NewJob(t, store, "https://youtube.com/watch?v=b", "youtube", "mp4")

	deleted, err := store.DeleteTerminalBefore(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("DeleteTerminalBefore failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted row, got %d", deleted)
	}

	remaining, err := store.GetByID(ctx, active.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if remaining == nil {
		t.Fatal("active job must survive history cleanup")
	}
}

func TestClearVariants(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	completed := testsupport.NewJob(t, store, "https://youtube.com/watch?v=a", "youtube", "mp4")
	completed.SetCompleted("/downloads/a/video.mp4", time.Now())
	if err := store.Update(ctx, completed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	failed := testsupport.NewJob(t, store, "https://youtube.com/watch?v=b", "youtube", "mp4")
	failed.SetFailed("boom", time.Now())
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	testsupport.NewJob(t, store, "https://youtube.com/watch?v=c", "youtube", "mp4")

	if n, err := store.ClearCompleted(ctx); err != nil || n != 1 {
		t.Fatalf("ClearCompleted: n=%d err=%v", n, err)
	}
	if n, err := store.ClearFailed(ctx); err != nil || n != 1 {
		t.Fatalf("ClearFailed: n=%d err=%v", n, err)
	}
	if n, err := store.Clear(ctx); err != nil || n != 1 {
		t.Fatalf("Clear: n=%d err=%v", n, err)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Running "); !ok || status != queue.StatusRunning {
		t.Fatalf("expected running, got %q ok=%v", status, ok)
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
