package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"clipfetch/internal/services"
)

// VideoInfo is the subset of yt-dlp's metadata dump exposed over the API.
// Engagement counts are pointers because not every platform reports them.
type VideoInfo struct {
	Title        string  `json:"title"`
	Duration     float64 `json:"duration"`
	ViewCount    *int64  `json:"view_count,omitempty"`
	LikeCount    *int64  `json:"like_count,omitempty"`
	RepostCount  *int64  `json:"repost_count,omitempty"`
	CommentCount *int64  `json:"comment_count,omitempty"`
	Thumbnail    string  `json:"thumbnail,omitempty"`
	Channel      string  `json:"uploader,omitempty"`
	Description  string  `json:"description,omitempty"`
	UploadDate   string  `json:"upload_date,omitempty"`
}

// Prober defines the metadata lookup behaviour required by the API server.
type Prober interface {
	Probe(ctx context.Context, url string) (*VideoInfo, error)
}

// Probe runs yt-dlp in metadata-only mode and parses the JSON dump.
func (c *Client) Probe(ctx context.Context, url string) (*VideoInfo, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, services.Wrap(services.ErrValidation, "ytdlp", "probe", "url required", nil)
	}

	probeCtx := ctx
	if c.probeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
	}

	args := []string{"-J", "--no-playlist", "--no-warnings", url}

	var payload string
	var lastError string
	onLine := func(line string) {
		if reason, ok := parseErrorLine(line); ok {
			lastError = reason
			return
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") {
			payload = trimmed
		}
	}

	if err := c.exec.Run(probeCtx, c.binary, args, onLine); err != nil {
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "ytdlp", "probe", "metadata lookup timed out", err)
		}
		message := lastError
		if message == "" {
			message = "metadata lookup failed"
		}
		return nil, services.Wrap(services.ErrExternalTool, "ytdlp", "probe", message, err)
	}
	if payload == "" {
		return nil, services.Wrap(services.ErrExternalTool, "ytdlp", "probe", "no metadata returned", nil)
	}

	var info VideoInfo
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ytdlp", "probe", "parse metadata", err)
	}
	return &info, nil
}

// DurationString renders the duration as m:ss (or h:mm:ss) for display.
func (v *VideoInfo) DurationString() string {
	if v == nil || v.Duration <= 0 {
		return ""
	}
	total := int(time.Duration(v.Duration * float64(time.Second)).Round(time.Second).Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
