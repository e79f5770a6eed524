package downloads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipfetch/internal/config"
	"clipfetch/internal/logging"
	"clipfetch/internal/queue"
	"clipfetch/internal/services"
	"clipfetch/internal/services/ytdlp"
)

var supportedPlatforms = map[string]struct{}{
	"youtube": {},
	"tiktok":  {},
}

var supportedFormats = map[string]struct{}{
	"mp3": {},
	"mp4": {},
}

// SupportedPlatforms returns the accepted platform identifiers.
func SupportedPlatforms() []string { return []string{"youtube", "tiktok"} }

// SupportedFormats returns the accepted output formats.
func SupportedFormats() []string { return []string{"mp3", "mp4"} }

// Request is a validated-on-submit download request.
type Request struct {
	URL      string
	Platform string
	Format   string
}

// SubmitResult reports the outcome of a submission.
type SubmitResult struct {
	JobID string
	// Attached is true when the submission matched an in-flight job instead
	// of starting a new one.
	Attached bool
}

// Summary describes manager runtime state for the status endpoint.
type Summary struct {
	Active    int
	MaxActive int
	StartedAt time.Time
}

// Option configures the manager.
type Option func(*Manager)

// WithClock injects a time source (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// Manager owns the live job state and drives the fetcher.
type Manager struct {
	cfg     *config.Config
	store   *queue.Store
	fetcher ytdlp.Fetcher
	logger  *slog.Logger
	clock   func() time.Time

	registry *registry
	snaps    *snapshotCache

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	baseCtx   context.Context
	startedAt time.Time

	janitorWG sync.WaitGroup
	jobWG     sync.WaitGroup
}

// NewManager wires the manager from configuration. The store may be nil in
// tests; history writes are skipped with a warning.
func NewManager(cfg *config.Config, store *queue.Store, fetcher ytdlp.Fetcher, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:     cfg,
		store:   store,
		fetcher: fetcher,
		logger:  logging.WithComponent(logger, "downloads"),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.registry = newRegistry(cfg.Workflow.MaxActive)
	m.snaps = newSnapshotCache(m.clock)
	return m
}

// Start sweeps interrupted history rows and launches the janitor.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("download manager already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.baseCtx = runCtx
	m.cancel = cancel
	m.running = true
	m.startedAt = m.clock()
	m.mu.Unlock()

	if m.store != nil {
		swept, err := m.store.FailInterrupted(ctx)
		if err != nil {
			m.logger.Warn("startup sweep failed", logging.Error(err))
		} else if swept > 0 {
			m.logger.Info("marked interrupted jobs failed", logging.Int64("count", swept))
		}
	}

	m.janitorWG.Add(1)
	go m.janitor(runCtx)
	return nil
}

// Stop cancels active jobs and waits for all goroutines to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.jobWG.Wait()
	m.janitorWG.Wait()
}

// Submit validates a request and either starts a new job or attaches to the
// active one holding the same dedup key. It never blocks on the fetch.
func (m *Manager) Submit(ctx context.Context, req Request) (SubmitResult, error) {
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if _, ok := supportedPlatforms[platform]; !ok {
		return SubmitResult{}, services.Wrap(services.ErrValidation, "downloads", "submit", fmt.Sprintf("unsupported platform %q", req.Platform), nil)
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if _, ok := supportedFormats[format]; !ok {
		return SubmitResult{}, services.Wrap(services.ErrValidation, "downloads", "submit", fmt.Sprintf("unsupported format %q", req.Format), nil)
	}
	normalized, err := NormalizeURL(req.URL)
	if err != nil {
		return SubmitResult{}, services.Wrap(services.ErrValidation, "downloads", "submit", "invalid url", err)
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return SubmitResult{}, errors.New("download manager not running")
	}
	baseCtx := m.baseCtx
	m.mu.Unlock()

	key := Key(normalized, platform, format)
	jobID := uuid.NewString()
	jobCtx, cancel := context.WithCancel(baseCtx)
	handle := &abortHandle{cancel: cancel}

	activeID, attached, err := m.registry.registerOrAttach(key, jobID, handle)
	if err != nil {
		cancel()
		return SubmitResult{}, services.Wrap(services.ErrBusy, "downloads", "submit", fmt.Sprintf("active download limit of %d reached", m.cfg.Workflow.MaxActive), nil)
	}
	if attached {
		cancel()
		m.logger.Info("attached to active download",
			logging.String(logging.FieldJobID, activeID),
			logging.String(logging.FieldURL, normalized),
		)
		return SubmitResult{JobID: activeID, Attached: true}, nil
	}

	now := m.clock().UTC()
	job := &queue.Job{
		ID:        jobID,
		URL:       normalized,
		Platform:  platform,
		Format:    format,
		Key:       key,
		Status:    queue.StatusQueued,
		Message:   "queued",
		CreatedAt: now,
	}
	m.recordJob(ctx, job)
	m.snaps.put(Snapshot{
		JobID:   jobID,
		Status:  queue.StatusQueued,
		Message: "queued",
	})

	m.jobWG.Add(1)
	go m.run(jobCtx, handle, job)

	m.logger.Info("download queued",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldURL, normalized),
		logging.String(logging.FieldPlatform, platform),
		logging.String(logging.FieldFormat, format),
	)
	return SubmitResult{JobID: jobID}, nil
}

func (m *Manager) run(ctx context.Context, handle *abortHandle, job *queue.Job) {
	defer m.jobWG.Done()
	defer m.registry.release(job.Key)

	logger := logging.WithJob(m.logger, job.ID)

	job.Status = queue.StatusRunning
	job.Message = "starting download"
	m.snaps.setStatus(job.ID, queue.StatusRunning, job.Message, "")
	m.updateJob(job)

	jobDir := m.jobDir(job.ID)
	path, err := m.fetcher.Fetch(ctx, ytdlp.Request{
		URL:      job.URL,
		Platform: job.Platform,
		Format:   job.Format,
		DestDir:  jobDir,
	}, func(u ytdlp.ProgressUpdate) {
		// Called from the executor's scanner goroutines; the cache is the
		// only shared state touched here.
		m.snaps.publishProgress(job.ID, u.Percent, u.Message)
	})

	if err != nil {
		message := handle.abortReason()
		if message == "" {
			message = failureMessage(services.Categorize(err))
		}
		job.SetFailed(message, m.clock())
		// Persist before publishing the terminal snapshot so clients that see
		// the final status also find the history row.
		m.updateJob(job)
		m.snaps.setStatus(job.ID, queue.StatusFailed, message, "")
		logger.Warn("download failed",
			logging.Error(err),
			logging.String("reason", message),
		)
		return
	}

	job.SetCompleted(path, m.clock())
	m.updateJob(job)
	m.snaps.setStatus(job.ID, queue.StatusCompleted, "completed", path)
	logger.Info("download completed", logging.String("path", path))
}

// Progress returns the live snapshot for a job.
func (m *Manager) Progress(jobID string) (Snapshot, error) {
	snap, ok := m.snaps.get(jobID)
	if !ok {
		return Snapshot{}, services.Wrap(services.ErrNotFound, "downloads", "progress", "unknown download", nil)
	}
	return snap, nil
}

// Resolve returns the produced file path for a completed job. It does not
// mutate state; callers record retrieval via MarkRetrieved after the bytes
// have actually been served.
func (m *Manager) Resolve(jobID string) (string, error) {
	snap, ok := m.snaps.get(jobID)
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "downloads", "resolve", "unknown download", nil)
	}
	switch snap.Status {
	case queue.StatusCompleted:
		return snap.OutputPath, nil
	case queue.StatusFailed:
		return "", services.Wrap(services.ErrNotFound, "downloads", "resolve", "download failed", nil)
	default:
		return "", services.Wrap(services.ErrNotReady, "downloads", "resolve", "download in progress", nil)
	}
}

// MarkRetrieved starts the post-retrieval retention countdown.
func (m *Manager) MarkRetrieved(jobID string) {
	m.snaps.markRetrieved(jobID)
}

// Abort cancels an active job with a reason.
func (m *Manager) Abort(jobID, reason string) bool {
	return m.registry.abort(jobID, reason)
}

// Summary reports runtime state for the status endpoint.
func (m *Manager) Summary() Summary {
	m.mu.Lock()
	startedAt := m.startedAt
	m.mu.Unlock()
	return Summary{
		Active:    m.registry.activeCount(),
		MaxActive: m.cfg.Workflow.MaxActive,
		StartedAt: startedAt,
	}
}

func (m *Manager) janitor(ctx context.Context) {
	defer m.janitorWG.Done()

	interval := m.cfg.JanitorInterval()
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep runs one janitor pass: fail stalled jobs, evict expired terminal
// jobs along with their files, and prune old history rows.
func (m *Manager) sweep(ctx context.Context) {
	now := m.clock()
	stall := m.cfg.StallTimeout()
	retention := m.cfg.Retention()
	retrievedRetention := m.cfg.RetrievedRetention()

	for _, snap := range m.snaps.list() {
		switch {
		case snap.Status == queue.StatusRunning && stall > 0 && now.Sub(snap.ProgressAt) >= stall:
			reason := fmt.Sprintf("stalled: no progress for %s", stall)
			if m.registry.abort(snap.JobID, reason) {
				m.logger.Warn("aborting stalled download",
					logging.String(logging.FieldJobID, snap.JobID),
					logging.Duration("stall", now.Sub(snap.ProgressAt)),
				)
			}
		case snap.Status.IsTerminal() && m.expired(snap, now, retention, retrievedRetention):
			m.evict(snap)
		}
	}

	if m.store != nil {
		history := m.cfg.HistoryRetention()
		if history > 0 {
			if _, err := m.store.DeleteTerminalBefore(ctx, now.Add(-history)); err != nil {
				m.logger.Warn("history cleanup failed", logging.Error(err))
			}
		}
	}
}

func (m *Manager) expired(snap Snapshot, now time.Time, retention, retrievedRetention time.Duration) bool {
	if snap.RetrievedAt != nil && retrievedRetention > 0 && now.Sub(*snap.RetrievedAt) >= retrievedRetention {
		return true
	}
	return retention > 0 && now.Sub(snap.UpdatedAt) >= retention
}

func (m *Manager) evict(snap Snapshot) {
	m.snaps.delete(snap.JobID)
	if err := os.RemoveAll(m.jobDir(snap.JobID)); err != nil {
		m.logger.Warn("evict cleanup failed",
			logging.String(logging.FieldJobID, snap.JobID),
			logging.Error(err),
		)
		return
	}
	m.logger.Info("evicted download",
		logging.String(logging.FieldJobID, snap.JobID),
		logging.String("status", string(snap.Status)),
	)
}

func (m *Manager) jobDir(jobID string) string {
	return filepath.Join(m.cfg.Paths.DownloadDir, jobID)
}

func (m *Manager) recordJob(ctx context.Context, job *queue.Job) {
	if m.store == nil {
		return
	}
	if err := m.store.Insert(ctx, job); err != nil {
		m.logger.Warn("persist job failed", logging.String(logging.FieldJobID, job.ID), logging.Error(err))
	}
}

func (m *Manager) updateJob(job *queue.Job) {
	if m.store == nil {
		return
	}
	if err := m.store.Update(context.Background(), job); err != nil {
		m.logger.Warn("update job failed", logging.String(logging.FieldJobID, job.ID), logging.Error(err))
	}
}

func failureMessage(category services.Category) string {
	switch category {
	case services.CategoryNetwork:
		return "network error while downloading"
	case services.CategoryUnsupported:
		return "unsupported or unavailable media"
	case services.CategoryDisk:
		return "not enough disk space"
	case services.CategoryTimeout:
		return "download timed out"
	default:
		return "download tool failed"
	}
}
