package ytdlp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"clipfetch/internal/services"
)

// ProgressUpdate captures yt-dlp progress output. A negative Percent means
// the line carried no percentage (phase transitions, destination notices);
// callers should keep their last known value.
type ProgressUpdate struct {
	Percent float64
	Message string
}

// Request describes a single fetch.
type Request struct {
	URL      string
	Platform string
	Format   string
	DestDir  string
}

// Fetcher defines the behaviour required by the download manager.
type Fetcher interface {
	Fetch(ctx context.Context, req Request, progress func(ProgressUpdate)) (string, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithFFmpegLocation points yt-dlp at a non-PATH ffmpeg install.
func WithFFmpegLocation(location string) Option {
	return func(c *Client) {
		c.ffmpegLocation = strings.TrimSpace(location)
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary         string
	ffmpegLocation string
	fetchTimeout   time.Duration
	probeTimeout   time.Duration
	exec           Executor
}

// New constructs a yt-dlp client.
func New(binary string, fetchTimeoutSeconds, probeTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:       binary,
		fetchTimeout: time.Duration(fetchTimeoutSeconds) * time.Second,
		probeTimeout: time.Duration(probeTimeoutSeconds) * time.Second,
		exec:         commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Fetch executes yt-dlp, returning the path of the produced file. On failure
// the destination directory is removed along with any partial downloads.
func (c *Client) Fetch(ctx context.Context, req Request, progress func(ProgressUpdate)) (string, error) {
	if strings.TrimSpace(req.URL) == "" {
		return "", services.Wrap(services.ErrValidation, "ytdlp", "fetch", "url required", nil)
	}
	if req.DestDir == "" {
		return "", services.Wrap(services.ErrValidation, "ytdlp", "fetch", "destination directory required", nil)
	}
	if err := os.MkdirAll(req.DestDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "ytdlp", "fetch", "create destination", err)
	}

	fetchCtx := ctx
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	args := c.buildFetchArgs(req)

	var mu sync.Mutex
	var lastError string
	onLine := func(line string) {
		if reason, ok := parseErrorLine(line); ok {
			mu.Lock()
			lastError = reason
			mu.Unlock()
			return
		}
		if progress == nil {
			return
		}
		if update, ok := parseProgress(line); ok {
			progress(update)
		}
	}

	if err := c.exec.Run(fetchCtx, c.binary, args, onLine); err != nil {
		_ = os.RemoveAll(req.DestDir)
		mu.Lock()
		reason := lastError
		mu.Unlock()
		return "", classifyFetchFailure(fetchCtx, reason, err)
	}

	path, err := locateOutput(req.DestDir, req.Format)
	if err != nil {
		_ = os.RemoveAll(req.DestDir)
		return "", services.Wrap(services.ErrExternalTool, "ytdlp", "fetch", "no output file produced", err)
	}
	return path, nil
}

func (c *Client) buildFetchArgs(req Request) []string {
	args := []string{
		"--newline",
		"--no-playlist",
		"--no-warnings",
		"--restrict-filenames",
		"-o", filepath.Join(req.DestDir, "%(title)s.%(ext)s"),
	}
	if strings.EqualFold(req.Format, "mp3") {
		args = append(args, "-f", "bestaudio/best", "-x", "--audio-format", "mp3", "--audio-quality", "192K")
	} else {
		args = append(args, "-f", "best")
	}
	if c.ffmpegLocation != "" {
		args = append(args, "--ffmpeg-location", c.ffmpegLocation)
	}
	return append(args, req.URL)
}

// fetchError carries the user-facing failure category alongside the cause.
type fetchError struct {
	category services.Category
	reason   string
	cause    error
}

func (e *fetchError) Error() string {
	if e.reason != "" {
		return fmt.Sprintf("ytdlp: fetch: %s", e.reason)
	}
	return fmt.Sprintf("ytdlp: fetch failed (%s)", e.category)
}

func (e *fetchError) Unwrap() error { return e.cause }

func (e *fetchError) FailureCategory() services.Category { return e.category }

func classifyFetchFailure(ctx context.Context, reason string, cause error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(cause, context.DeadlineExceeded) {
		return &fetchError{category: services.CategoryTimeout, reason: "download timed out", cause: services.ErrTimeout}
	}
	return &fetchError{category: categorizeReason(reason), reason: reason, cause: fmt.Errorf("%w: %w", services.ErrExternalTool, cause)}
}

func categorizeReason(reason string) services.Category {
	lower := strings.ToLower(reason)
	switch {
	case lower == "":
		return services.CategoryCrash
	case strings.Contains(lower, "unsupported url"),
		strings.Contains(lower, "is not a valid url"),
		strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "private video"),
		strings.Contains(lower, "no video formats"),
		strings.Contains(lower, "requested format is not available"):
		return services.CategoryUnsupported
	case strings.Contains(lower, "no space left"),
		strings.Contains(lower, "disk full"),
		strings.Contains(lower, "read-only file system"):
		return services.CategoryDisk
	case strings.Contains(lower, "unable to download"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "timed out"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "getaddrinfo"),
		strings.Contains(lower, "temporary failure"),
		strings.Contains(lower, "http error 5"):
		return services.CategoryNetwork
	default:
		return services.CategoryCrash
	}
}

var downloadPercentPattern = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)

func parseProgress(line string) (ProgressUpdate, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return ProgressUpdate{}, false
	}
	if match := downloadPercentPattern.FindStringSubmatch(line); match != nil {
		percent, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return ProgressUpdate{}, false
		}
		return ProgressUpdate{Percent: percent, Message: line}, true
	}
	// Phase transitions like "[ExtractAudio] Destination: ..." or
	// "[Merger] Merging formats into ...".
	if strings.HasPrefix(line, "[") && strings.Contains(line, "]") {
		return ProgressUpdate{Percent: -1, Message: line}, true
	}
	return ProgressUpdate{}, false
}

func parseErrorLine(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(trimmed, "ERROR:"); ok {
		return strings.TrimSpace(rest), true
	}
	return "", false
}

// partial-download suffixes yt-dlp leaves behind on interruption.
var partialSuffixes = []string{".part", ".ytdl", ".temp", ".tmp"}

func locateOutput(dir, format string) (string, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	type candidate struct {
		path    string
		size    int64
		modTime time.Time
	}
	wantExt := "." + strings.ToLower(strings.TrimSpace(format))
	var best *candidate
	var fallback *candidate
	for _, item := range items {
		if item.IsDir() || isPartialFile(item.Name()) {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		entry := candidate{path: filepath.Join(dir, item.Name()), size: info.Size(), modTime: info.ModTime()}
		if strings.EqualFold(filepath.Ext(item.Name()), wantExt) {
			if best == nil || entry.size > best.size {
				best = &entry
			}
			continue
		}
		if fallback == nil || entry.size > fallback.size {
			fallback = &entry
		}
	}
	if best != nil {
		return best.path, nil
	}
	if fallback != nil {
		return fallback.path, nil
	}
	return "", fmt.Errorf("no files in %s", dir)
}

func isPartialFile(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	// Fragment files from chunked downloads: video.mp4.frag12.
	return strings.Contains(lower, ".frag")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		// -J metadata dumps arrive as one very long line.
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
