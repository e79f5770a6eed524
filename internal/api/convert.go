package api

import (
	"time"

	"clipfetch/internal/queue"
	"clipfetch/internal/services/ytdlp"
)

const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FromJob converts a history row into its wire representation.
func FromJob(job *queue.Job) QueueJob {
	if job == nil {
		return QueueJob{}
	}
	out := QueueJob{
		ID:           job.ID,
		URL:          job.URL,
		Platform:     job.Platform,
		Format:       job.Format,
		Status:       string(job.Status),
		Progress:     job.Percent,
		Message:      job.Message,
		OutputPath:   job.OutputPath,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    formatTime(job.CreatedAt),
		UpdatedAt:    formatTime(job.UpdatedAt),
	}
	if job.CompletedAt != nil {
		out.CompletedAt = formatTime(*job.CompletedAt)
	}
	return out
}

// FromJobs converts a slice of history rows.
func FromJobs(jobs []*queue.Job) []QueueJob {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]QueueJob, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStats converts store counters into their wire representation.
func FromStats(stats queue.Stats) QueueStats {
	return QueueStats{
		Total:     stats.Total,
		Queued:    stats.Queued,
		Running:   stats.Running,
		Completed: stats.Completed,
		Failed:    stats.Failed,
	}
}

// FromVideoInfo converts probed metadata into its wire representation.
func FromVideoInfo(info *ytdlp.VideoInfo) VideoInfo {
	if info == nil {
		return VideoInfo{}
	}
	return VideoInfo{
		Title:        info.Title,
		Duration:     info.Duration,
		DurationText: info.DurationString(),
		ViewCount:    info.ViewCount,
		LikeCount:    info.LikeCount,
		RepostCount:  info.RepostCount,
		CommentCount: info.CommentCount,
		Thumbnail:    info.Thumbnail,
		Channel:      info.Channel,
		Description:  info.Description,
		UploadDate:   info.UploadDate,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
