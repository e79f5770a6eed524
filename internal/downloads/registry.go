package downloads

import (
	"sync"

	"clipfetch/internal/services"
)

// abortHandle cancels a job's subprocess context while recording why, so the
// failure path can report "stalled" or "timed out" instead of a bare
// context.Canceled.
type abortHandle struct {
	mu     sync.Mutex
	reason string
	cancel func()
}

func (h *abortHandle) abort(reason string) {
	h.mu.Lock()
	if h.reason == "" {
		h.reason = reason
	}
	h.mu.Unlock()
	h.cancel()
}

func (h *abortHandle) abortReason() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reason
}

type registryEntry struct {
	jobID  string
	handle *abortHandle
}

// registry is the authoritative index of active jobs keyed by dedup key. A
// single mutex makes find-then-register atomic, which is what keeps two
// identical submissions from racing into two subprocesses.
type registry struct {
	mu        sync.Mutex
	maxActive int
	byKey     map[string]registryEntry
	keyByID   map[string]string
}

func newRegistry(maxActive int) *registry {
	return &registry{
		maxActive: maxActive,
		byKey:     make(map[string]registryEntry),
		keyByID:   make(map[string]string),
	}
}

// findActive returns the active job id for a key without side effects.
func (r *registry) findActive(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byKey[key]
	return entry.jobID, ok
}

// registerOrAttach records a new active job under key, or returns the id of
// the job already holding it. The max-active cap applies only to genuinely
// new registrations; attaching to in-flight work is always allowed.
func (r *registry) registerOrAttach(key, jobID string, handle *abortHandle) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.byKey[key]; ok {
		return entry.jobID, true, nil
	}
	if r.maxActive > 0 && len(r.byKey) >= r.maxActive {
		return "", false, services.ErrBusy
	}
	r.byKey[key] = registryEntry{jobID: jobID, handle: handle}
	r.keyByID[jobID] = key
	return jobID, false, nil
}

// release drops the index entry for a key. Idempotent.
func (r *registry) release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.byKey[key]; ok {
		delete(r.keyByID, entry.jobID)
		delete(r.byKey, key)
	}
}

// abort cancels the subprocess of an active job, recording the reason for
// the failure message. Returns false when the job is no longer active.
func (r *registry) abort(jobID, reason string) bool {
	r.mu.Lock()
	key, ok := r.keyByID[jobID]
	var handle *abortHandle
	if ok {
		handle = r.byKey[key].handle
	}
	r.mu.Unlock()

	if handle == nil {
		return false
	}
	handle.abort(reason)
	return true
}

// activeCount reports the number of registered jobs.
func (r *registry) activeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}

// activeIDs returns a snapshot of active job ids.
func (r *registry) activeIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.keyByID))
	for id := range r.keyByID {
		ids = append(ids, id)
	}
	return ids
}
