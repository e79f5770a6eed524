package api

// DownloadRequest is the POST /api/download body.
type DownloadRequest struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
	Format   string `json:"format"`
}

// DownloadResponse acknowledges a submission. Status is "started" for new
// jobs and "in_progress" when the request attached to active work.
type DownloadResponse struct {
	DownloadID string `json:"download_id"`
	Status     string `json:"status"`
}

// ProgressResponse is the GET /api/progress/{id} body.
type ProgressResponse struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

// VideoInfoRequest is the POST /api/video-info body.
type VideoInfoRequest struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
}

// VideoInfo mirrors the metadata subset returned by the fetch tool.
type VideoInfo struct {
	Title        string  `json:"title"`
	Duration     float64 `json:"duration"`
	DurationText string  `json:"duration_text,omitempty"`
	ViewCount    *int64  `json:"view_count,omitempty"`
	LikeCount    *int64  `json:"like_count,omitempty"`
	RepostCount  *int64  `json:"repost_count,omitempty"`
	CommentCount *int64  `json:"comment_count,omitempty"`
	Thumbnail    string  `json:"thumbnail,omitempty"`
	Channel      string  `json:"channel,omitempty"`
	Description  string  `json:"description,omitempty"`
	UploadDate   string  `json:"upload_date,omitempty"`
}

// HealthResponse is the GET /api/health body.
type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	DownloadDir string `json:"download_dir"`
}

// QueueJob describes a history row in a transport-friendly format.
type QueueJob struct {
	ID           string  `json:"id"`
	URL          string  `json:"url"`
	Platform     string  `json:"platform"`
	Format       string  `json:"format"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	Message      string  `json:"message,omitempty"`
	OutputPath   string  `json:"output_path,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	CreatedAt    string  `json:"created_at,omitempty"`
	UpdatedAt    string  `json:"updated_at,omitempty"`
	CompletedAt  string  `json:"completed_at,omitempty"`
}

// QueueListResponse wraps a collection of history rows.
type QueueListResponse struct {
	Jobs []QueueJob `json:"jobs"`
}

// QueueClearResponse reports how many history rows a cleanup removed.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueStats aggregates history counts per status.
type QueueStats struct {
	Total     int `json:"total"`
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// StatusResponse aggregates daemon runtime information.
type StatusResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StartedAt    string             `json:"started_at,omitempty"`
	Active       int                `json:"active"`
	MaxActive    int                `json:"max_active"`
	DownloadDir  string             `json:"download_dir"`
	JobDBPath    string             `json:"job_db_path,omitempty"`
	LockFilePath string             `json:"lock_file_path,omitempty"`
	Queue        QueueStats         `json:"queue"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}
