package downloads

import (
	"sync"
	"time"

	"clipfetch/internal/queue"
)

// Snapshot is the poller-facing view of a job. It lives in memory so 1s
// polling never touches SQLite.
type Snapshot struct {
	JobID       string
	Status      queue.Status
	Percent     float64
	Message     string
	OutputPath  string
	UpdatedAt   time.Time
	ProgressAt  time.Time
	RetrievedAt *time.Time
}

type snapshotCache struct {
	mu    sync.RWMutex
	byID  map[string]Snapshot
	clock func() time.Time
}

func newSnapshotCache(clock func() time.Time) *snapshotCache {
	if clock == nil {
		clock = time.Now
	}
	return &snapshotCache{
		byID:  make(map[string]Snapshot),
		clock: clock,
	}
}

func (c *snapshotCache) get(jobID string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.byID[jobID]
	return snap, ok
}

// put inserts or replaces a snapshot wholesale.
func (c *snapshotCache) put(snap Snapshot) {
	now := c.clock()
	snap.UpdatedAt = now
	if snap.ProgressAt.IsZero() {
		snap.ProgressAt = now
	}
	c.mu.Lock()
	c.byID[snap.JobID] = snap
	c.mu.Unlock()
}

// publishProgress applies a progress event to a live snapshot. Percent is
// clamped monotonic: out-of-order or regressing values from the tool never
// move the reported number backwards. A negative percent updates the message
// only. Returns the stored snapshot.
func (c *snapshotCache) publishProgress(jobID string, percent float64, message string) (Snapshot, bool) {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, ok := c.byID[jobID]
	if !ok || snap.Status.IsTerminal() {
		return snap, false
	}
	if percent >= 0 {
		if percent > 100 {
			percent = 100
		}
		if percent > snap.Percent {
			snap.Percent = percent
		}
	}
	if message != "" {
		snap.Message = message
	}
	snap.ProgressAt = now
	snap.UpdatedAt = now
	c.byID[jobID] = snap
	return snap, true
}

// setStatus transitions a snapshot's status, forcing percent to 100 on
// completion.
func (c *snapshotCache) setStatus(jobID string, status queue.Status, message, outputPath string) (Snapshot, bool) {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, ok := c.byID[jobID]
	if !ok {
		return Snapshot{}, false
	}
	snap.Status = status
	if message != "" {
		snap.Message = message
	}
	snap.OutputPath = outputPath
	if status == queue.StatusCompleted {
		snap.Percent = 100
	}
	snap.UpdatedAt = now
	snap.ProgressAt = now
	c.byID[jobID] = snap
	return snap, true
}

// markRetrieved records the first successful file retrieval, starting the
// shortened retention countdown.
func (c *snapshotCache) markRetrieved(jobID string) bool {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, ok := c.byID[jobID]
	if !ok {
		return false
	}
	if snap.RetrievedAt == nil {
		snap.RetrievedAt = &now
		c.byID[jobID] = snap
	}
	return true
}

func (c *snapshotCache) delete(jobID string) {
	c.mu.Lock()
	delete(c.byID, jobID)
	c.mu.Unlock()
}

// list returns a copy of all snapshots.
func (c *snapshotCache) list() []Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snaps := make([]Snapshot, 0, len(c.byID))
	for _, snap := range c.byID {
		snaps = append(snaps, snap)
	}
	return snaps
}
