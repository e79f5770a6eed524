package downloads

import (
	"testing"
	"time"

	"clipfetch/internal/queue"
)

func TestPublishProgressClampsMonotonic(t *testing.T) {
	cache := newSnapshotCache(nil)
	cache.put(Snapshot{JobID: "job", Status: queue.StatusRunning})

	var got []float64
	for _, percent := range []float64{10, 35, 20, 80, 100} {
		snap, ok := cache.publishProgress("job", percent, "")
		if !ok {
			t.Fatalf("publish %.0f rejected", percent)
		}
		got = append(got, snap.Percent)
	}

	want := []float64{10, 35, 35, 80, 100}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected clamped sequence %v, got %v", want, got)
		}
	}
}

func TestPublishProgressCapsAtHundred(t *testing.T) {
	cache := newSnapshotCache(nil)
	cache.put(Snapshot{JobID: "job", Status: queue.StatusRunning})

	snap, _ := cache.publishProgress("job", 250, "")
	if snap.Percent != 100 {
		t.Fatalf("expected cap at 100, got %v", snap.Percent)
	}
}

func TestPublishProgressMessageOnlyKeepsPercent(t *testing.T) {
	cache := newSnapshotCache(nil)
	cache.put(Snapshot{JobID: "job", Status: queue.StatusRunning})

	cache.publishProgress("job", 40, "[download]  40.0%")
	snap, ok := cache.publishProgress("job", -1, "[ExtractAudio] Destination: track.mp3")
	if !ok {
		t.Fatal("message-only update rejected")
	}
	if snap.Percent != 40 {
		t.Fatalf("expected percent preserved, got %v", snap.Percent)
	}
	if snap.Message != "[ExtractAudio] Destination: track.mp3" {
		t.Fatalf("expected message updated, got %q", snap.Message)
	}
}

func TestPublishProgressIgnoredAfterTerminal(t *testing.T) {
	cache := newSnapshotCache(nil)
	cache.put(Snapshot{JobID: "job", Status: queue.StatusRunning})
	cache.setStatus("job", queue.StatusCompleted, "completed", "/tmp/file.mp4")

	if _, ok := cache.publishProgress("job", 10, "late"); ok {
		t.Fatal("terminal snapshot must reject progress")
	}
	snap, _ := cache.get("job")
	if snap.Percent != 100 {
		t.Fatalf("completion must force percent 100, got %v", snap.Percent)
	}
}

func TestMarkRetrievedOnlyRecordsFirst(t *testing.T) {
	current := time.Unix(1000, 0)
	cache := newSnapshotCache(func() time.Time { return current })
	cache.put(Snapshot{JobID: "job", Status: queue.StatusCompleted})

	if !cache.markRetrieved("job") {
		t.Fatal("expected markRetrieved to find job")
	}
	first, _ := cache.get("job")

	current = current.Add(time.Minute)
	cache.markRetrieved("job")
	second, _ := cache.get("job")

	if second.RetrievedAt == nil || !second.RetrievedAt.Equal(*first.RetrievedAt) {
		t.Fatalf("expected first retrieval time preserved, got %v", second.RetrievedAt)
	}
	if cache.markRetrieved("missing") {
		t.Fatal("unknown job must report false")
	}
}
