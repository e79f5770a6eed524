package downloads

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"clipfetch/internal/queue"
	"clipfetch/internal/services"
	"clipfetch/internal/services/ytdlp"
	"clipfetch/internal/testsupport"
)

// fakeClock is a mutable time source shared between the manager and tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// stubFetcher emits canned progress, optionally blocks until released or
// cancelled, then produces a file.
type stubFetcher struct {
	updates []ytdlp.ProgressUpdate
	block   chan struct{}
	err     error

	mu    sync.Mutex
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, req ytdlp.Request, progress func(ytdlp.ProgressUpdate)) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	for _, u := range f.updates {
		if progress != nil {
			progress(u)
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	if err := os.MkdirAll(req.DestDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(req.DestDir, "Sample_Video."+req.Format)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestManager(t *testing.T, fetcher ytdlp.Fetcher, clock *fakeClock, opts ...testsupport.ConfigOption) *Manager {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	var mgrOpts []Option
	if clock != nil {
		mgrOpts = append(mgrOpts, WithClock(clock.Now))
	}
	m := NewManager(cfg, nil, fetcher, nil, mgrOpts...)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(m.Stop)
	return m
}

func waitForStatus(t *testing.T, m *Manager, jobID string, want queue.Status) Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := m.Progress(jobID)
		if err == nil && snap.Status == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, err := m.Progress(jobID)
	t.Fatalf("timed out waiting for %s, last snapshot %#v err=%v", want, snap, err)
	return Snapshot{}
}

func TestSubmitRunsToCompletion(t *testing.T) {
	fetcher := &stubFetcher{updates: []ytdlp.ProgressUpdate{
		{Percent: 10, Message: "[download]  10.0%"},
		{Percent: 100, Message: "[download] 100%"},
	}}
	m := newTestManager(t, fetcher, nil)

	res, err := m.Submit(context.Background(), Request{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: "youtube",
		Format:   "mp4",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Attached {
		t.Fatal("first submission must not attach")
	}

	snap := waitForStatus(t, m, res.JobID, queue.StatusCompleted)
	if snap.Percent != 100 {
		t.Fatalf("expected percent 100, got %v", snap.Percent)
	}

	path, err := m.Resolve(res.JobID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected produced file: %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	m := newTestManager(t, &stubFetcher{}, nil)

	cases := []Request{
		{URL: "https://youtube.com/watch?v=abc", Platform: "vimeo", Format: "mp4"},
		{URL: "https://youtube.com/watch?v=abc", Platform: "youtube", Format: "wav"},
		{URL: "not a url", Platform: "youtube", Format: "mp4"},
		{URL: "", Platform: "youtube", Format: "mp4"},
	}
	for _, req := range cases {
		if _, err := m.Submit(context.Background(), req); !errors.Is(err, services.ErrValidation) {
			t.Errorf("expected validation error for %+v, got: %v", req, err)
		}
	}
}

func TestSubmitDeduplicatesActiveJobs(t *testing.T) {
	block := make(chan struct{})
	fetcher := &stubFetcher{block: block}
	m := newTestManager(t, fetcher, nil)

	first, err := m.Submit(context.Background(), Request{
		URL:      "https://youtube.com/watch?v=abc&si=tracker",
		Platform: "youtube",
		Format:   "mp4",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, m, first.JobID, queue.StatusRunning)

	// Same media through a share link attaches to the in-flight job.
	second, err := m.Submit(context.Background(), Request{
		URL:      "https://YOUTUBE.com/watch?v=abc",
		Platform: "YouTube",
		Format:   "MP4",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !second.Attached || second.JobID != first.JobID {
		t.Fatalf("expected attach to %s, got %+v", first.JobID, second)
	}

	// A different format is different work.
	third, err := m.Submit(context.Background(), Request{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: "youtube",
		Format:   "mp3",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if third.Attached || third.JobID == first.JobID {
		t.Fatalf("expected a new job for mp3, got %+v", third)
	}

	close(block)
	waitForStatus(t, m, first.JobID, queue.StatusCompleted)
	waitForStatus(t, m, third.JobID, queue.StatusCompleted)

	if got := fetcher.callCount(); got != 2 {
		t.Fatalf("expected 2 fetches for 3 submissions, got %d", got)
	}

	// Terminal jobs release their key: resubmission starts fresh work.
	fourth, err := m.Submit(context.Background(), Request{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: "youtube",
		Format:   "mp4",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if fourth.Attached {
		t.Fatal("completed job must not absorb new submissions")
	}
}

func TestSubmitRejectsWhenAtCapacity(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	m := newTestManager(t, &stubFetcher{block: block}, nil, testsupport.WithMaxActive(1))

	if _, err := m.Submit(context.Background(), Request{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: "youtube",
		Format:   "mp4",
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err := m.Submit(context.Background(), Request{
		URL:      "https://youtube.com/watch?v=other",
		Platform: "youtube",
		Format:   "mp4",
	})
	if !errors.Is(err, services.ErrBusy) {
		t.Fatalf("expected ErrBusy, got: %v", err)
	}
}

func TestFailedFetchCategorizesMessage(t *testing.T) {
	fetcher := &stubFetcher{err: services.Wrap(services.ErrTimeout, "ytdlp", "fetch", "download timed out", nil)}
	m := newTestManager(t, fetcher, nil)

	res, err := m.Submit(context.Background(), Request{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: "youtube",
		Format:   "mp4",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := waitForStatus(t, m, res.JobID, queue.StatusFailed)
	if snap.Message != "download timed out" {
		t.Fatalf("expected categorized message, got %q", snap.Message)
	}
	if _, err := m.Resolve(res.JobID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("failed job must resolve to not found, got: %v", err)
	}
}

func TestSweepFailsStalledJob(t *testing.T) {
	clock := newFakeClock()
	block := make(chan struct{})
	defer close(block)
	m := newTestManager(t, &stubFetcher{block: block}, clock)

	res, err := m.Submit(context.Background(), Request{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: "youtube",
		Format:   "mp4",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, m, res.JobID, queue.StatusRunning)

	clock.Advance(m.cfg.StallTimeout() + time.Second)
	m.sweep(context.Background())

	snap := waitForStatus(t, m, res.JobID, queue.StatusFailed)
	if !strings.Contains(snap.Message, "stalled") {
		t.Fatalf("expected stall reason, got %q", snap.Message)
	}

	// The key is free again.
	again, err := m.Submit(context.Background(), Request{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: "youtube",
		Format:   "mp4",
	})
	if err != nil {
		t.Fatalf("Submit after stall: %v", err)
	}
	if again.Attached {
		t.Fatal("stalled job must not hold its dedup key")
	}
}

func TestSweepEvictsExpiredTerminalJobs(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, &stubFetcher{}, clock)

	res, err := m.Submit(context.Background(), Request{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: "youtube",
		Format:   "mp4",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, m, res.JobID, queue.StatusCompleted)
	path, err := m.Resolve(res.JobID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	clock.Advance(m.cfg.Retention() + time.Minute)
	m.sweep(context.Background())

	if _, err := m.Progress(res.JobID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("evicted job must be unknown, got: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected produced file removed, got err=%v", err)
	}
}

func TestSweepEvictsRetrievedJobsSooner(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, &stubFetcher{}, clock)

	res, err := m.Submit(context.Background(), Request{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: "youtube",
		Format:   "mp4",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, m, res.JobID, queue.StatusCompleted)
	m.MarkRetrieved(res.JobID)

	clock.Advance(m.cfg.RetrievedRetention() + time.Second)
	m.sweep(context.Background())

	if _, err := m.Progress(res.JobID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("retrieved job must be evicted quickly, got: %v", err)
	}
}

func TestResolveStates(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	m := newTestManager(t, &stubFetcher{block: block}, nil)

	if _, err := m.Resolve("unknown"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown id, got: %v", err)
	}

	res, err := m.Submit(context.Background(), Request{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: "youtube",
		Format:   "mp4",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, m, res.JobID, queue.StatusRunning)
	if _, err := m.Resolve(res.JobID); !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("expected not ready while running, got: %v", err)
	}
}

func TestManagerPersistsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	m := NewManager(cfg, store, &stubFetcher{}, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(m.Stop)

	res, err := m.Submit(context.Background(), Request{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: "youtube",
		Format:   "mp4",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, m, res.JobID, queue.StatusCompleted)

	job, err := store.GetByID(context.Background(), res.JobID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job == nil || job.Status != queue.StatusCompleted || job.OutputPath == "" {
		t.Fatalf("expected completed history row, got %#v", job)
	}
}
