package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a download job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// InterruptedReason is the error message set on jobs a previous daemon
// process left unfinished.
const InterruptedReason = "interrupted by restart"

var allStatuses = []Status{
	StatusQueued,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job represents a download job persisted in SQLite.
type Job struct {
	ID           string
	URL          string
	Platform     string
	Format       string
	Key          string
	Status       Status
	Percent      float64
	Message      string
	OutputPath   string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// IsActive reports whether the job still occupies a registry slot.
func (j Job) IsActive() bool {
	return j.Status == StatusQueued || j.Status == StatusRunning
}

// SetProgress updates the live progress fields.
func (j *Job) SetProgress(percent float64, message string) {
	j.Percent = percent
	j.Message = message
}

// SetCompleted marks the job finished with its produced file.
func (j *Job) SetCompleted(outputPath string, at time.Time) {
	j.Status = StatusCompleted
	j.Percent = 100
	j.Message = "completed"
	j.OutputPath = outputPath
	j.ErrorMessage = ""
	completed := at.UTC()
	j.CompletedAt = &completed
}

// SetFailed marks the job failed with a user-facing message.
func (j *Job) SetFailed(message string, at time.Time) {
	j.Status = StatusFailed
	j.Message = message
	j.ErrorMessage = message
	j.OutputPath = ""
	completed := at.UTC()
	j.CompletedAt = &completed
}

// Stats aggregates job counts per status.
type Stats struct {
	Total     int
	Queued    int
	Running   int
	Completed int
	Failed    int
}
