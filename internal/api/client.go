package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipfetch/internal/queue"
	"clipfetch/internal/services"
	"clipfetch/internal/textutil"
)

// Client provides HTTP access to a running daemon.
type Client struct {
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient injects a custom transport (primarily for tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithPollInterval overrides the Await polling cadence.
func WithPollInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// NewClient builds a client for the daemon bound at bind (host:port or URL).
func NewClient(bind string, opts ...ClientOption) *Client {
	base := strings.TrimSpace(bind)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	c := &Client{
		baseURL:      strings.TrimSuffix(base, "/"),
		http:         &http.Client{Timeout: 30 * time.Second},
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks daemon liveness.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.getJSON(ctx, "/api/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon runtime summary.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.getJSON(ctx, "/api/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit enqueues a download.
func (c *Client) Submit(ctx context.Context, req DownloadRequest) (*DownloadResponse, error) {
	var resp DownloadResponse
	if err := c.postJSON(ctx, "/api/download", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Progress fetches the live snapshot for a job.
func (c *Client) Progress(ctx context.Context, downloadID string) (*ProgressResponse, error) {
	var resp ProgressResponse
	if err := c.getJSON(ctx, "/api/progress/"+url.PathEscape(downloadID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Await polls until the job reaches a terminal status. Up to three
// consecutive transient errors are tolerated before surfacing the failure;
// a 404 is never transient.
func (c *Client) Await(ctx context.Context, downloadID string) (*ProgressResponse, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		resp, err := c.Progress(ctx, downloadID)
		if err != nil {
			if !isTransient(err) {
				return nil, err
			}
			failures++
			if failures >= 3 {
				return nil, fmt.Errorf("poll progress: %w", err)
			}
		} else {
			failures = 0
			status, _ := queue.ParseStatus(resp.Status)
			if status.IsTerminal() {
				return resp, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// VideoInfo looks up metadata without downloading.
func (c *Client) VideoInfo(ctx context.Context, req VideoInfoRequest) (*VideoInfo, error) {
	var resp VideoInfo
	if err := c.postJSON(ctx, "/api/video-info", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Queue lists history rows, optionally filtered by status.
func (c *Client) Queue(ctx context.Context, statuses ...string) (*QueueListResponse, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var resp QueueListResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearQueue removes history rows. Scope is "completed", "failed", or "all".
func (c *Client) ClearQueue(ctx context.Context, scope string) (*QueueClearResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/queue?scope="+url.QueryEscape(scope), nil)
	if err != nil {
		return nil, err
	}
	var resp QueueClearResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveFile streams the produced file for a completed job into destDir (or
// the file path destDir names) and returns the written path.
func (c *Client) SaveFile(ctx context.Context, downloadID, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/download/"+url.PathEscape(downloadID)+"/file", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}

	name := textutil.SanitizeFileName(fileNameFromDisposition(resp.Header.Get("Content-Disposition")))
	if name == "" {
		name = downloadID
	}
	target := destDir
	if info, err := os.Stat(destDir); err == nil && info.IsDir() {
		target = filepath.Join(destDir, name)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return target, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// transportError marks connection-level failures so Await can retry them.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// IsTransportError reports whether err is a connection-level failure rather
// than an HTTP status response from the daemon.
func IsTransportError(err error) bool {
	var te *transportError
	return errors.As(err, &te)
}

func isTransient(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return false
}

// statusError maps HTTP failure codes onto the service error taxonomy.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.code, e.message)
}

func (e *statusError) Unwrap() error {
	switch e.code {
	case http.StatusBadRequest:
		return services.ErrValidation
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusConflict:
		return services.ErrNotReady
	case http.StatusTooManyRequests:
		return services.ErrBusy
	default:
		return nil
	}
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	message := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		message = payload.Error
	}
	return &statusError{code: resp.StatusCode, message: message}
}

func fileNameFromDisposition(header string) string {
	const marker = `filename="`
	idx := strings.Index(header, marker)
	if idx < 0 {
		return ""
	}
	rest := header[idx+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return ""
	}
	return filepath.Base(rest[:end])
}
