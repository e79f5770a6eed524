package main

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func newFakeDaemon(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func writeJSONResponse(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestSubmitCommandStartsDownload(t *testing.T) {
	server := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/download" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["platform"] != "youtube" || body["format"] != "mp4" {
			t.Errorf("unexpected body %v", body)
		}
		writeJSONResponse(t, w, map[string]string{"download_id": "job-1", "status": "started"})
	})

	out, err := runCommand(t, "--address", server.URL,
		"submit", "https://www.youtube.com/watch?v=abc", "-p", "youtube", "-f", "mp4")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "Download job-1 started") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSubmitCommandReportsAttach(t *testing.T) {
	server := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(t, w, map[string]string{"download_id": "job-1", "status": "in_progress"})
	})

	out, err := runCommand(t, "--address", server.URL,
		"submit", "https://www.youtube.com/watch?v=abc", "-p", "youtube", "-f", "mp4")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "Attached to active download job-1") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSubmitCommandWaitFailsOnFailedDownload(t *testing.T) {
	server := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			writeJSONResponse(t, w, map[string]string{"download_id": "job-2", "status": "started"})
		default:
			writeJSONResponse(t, w, map[string]any{
				"status":   "failed",
				"progress": 12.0,
				"message":  "network error while downloading",
			})
		}
	})

	_, err := runCommand(t, "--address", server.URL,
		"submit", "https://www.youtube.com/watch?v=abc", "-p", "youtube", "-f", "mp4", "--wait")
	if err == nil || !strings.Contains(err.Error(), "network error") {
		t.Fatalf("expected failure message, got %v", err)
	}
}

func TestProgressCommand(t *testing.T) {
	server := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/progress/job-3" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSONResponse(t, w, map[string]any{
			"status":   "running",
			"progress": 42.5,
			"message":  "downloading",
		})
	})

	out, err := runCommand(t, "--address", server.URL, "progress", "job-3")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !strings.Contains(out, "running") || !strings.Contains(out, "42.5%") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestQueueListCommandRendersTable(t *testing.T) {
	server := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(t, w, map[string]any{
			"jobs": []map[string]any{
				{
					"id":       "job-4",
					"url":      "https://www.youtube.com/watch?v=abc",
					"platform": "youtube",
					"format":   "mp3",
					"status":   "completed",
					"progress": 100.0,
				},
			},
		})
	})

	out, err := runCommand(t, "--address", server.URL, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	for _, want := range []string{"job-4", "youtube", "mp3", "completed", "100%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestQueueListCommandEmptyHistory(t *testing.T) {
	server := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(t, w, map[string]any{"jobs": []any{}})
	})

	out, err := runCommand(t, "--address", server.URL, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "History is empty") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestQueueClearCommand(t *testing.T) {
	server := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method %s", r.Method)
		}
		if scope := r.URL.Query().Get("scope"); scope != "failed" {
			t.Errorf("scope = %q", scope)
		}
		writeJSONResponse(t, w, map[string]int{"removed": 3})
	})

	out, err := runCommand(t, "--address", server.URL, "queue", "clear", "--scope", "failed")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	if !strings.Contains(out, "Removed 3 entries") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestStatusCommandReportsUnreachableDaemon(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	out, err := runCommand(t, "--address", addr, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "not reachable") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error for existing config without --overwrite")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowCommand(t *testing.T) {
	out, err := runCommand(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"[paths]", "download_dir", "[workflow]", "max_active"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestInfoCommand(t *testing.T) {
	views := int64(98765)
	server := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/video-info" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSONResponse(t, w, map[string]any{
			"title":         "Test Clip",
			"duration":      75.0,
			"duration_text": "1:15",
			"view_count":    views,
			"channel":       "tester",
		})
	})

	out, err := runCommand(t, "--address", server.URL, "info", "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	for _, want := range []string{"Test Clip", "1:15", "98765", "tester"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}
