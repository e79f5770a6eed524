package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(level string) (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(level))
	return slog.New(newConsoleHandler(buf, levelVar)), buf
}

func TestConsoleHandlerFormatsComponentPrefix(t *testing.T) {
	logger, buf := newBufferLogger("info")
	WithComponent(logger, "api-server").Info("listening", String("address", "127.0.0.1:0"))

	line := buf.String()
	if !strings.Contains(line, " INFO api-server: listening") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "address=127.0.0.1:0") {
		t.Fatalf("expected address attr, got %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	logger, buf := newBufferLogger("info")
	logger.Info("done", String("message", "two words"))

	if !strings.Contains(buf.String(), `message="two words"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	logger, buf := newBufferLogger("warn")
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "WARN shown") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestErrorAttr(t *testing.T) {
	logger, buf := newBufferLogger("info")
	logger.Error("failed", Error(errors.New("boom bam")))
	if !strings.Contains(buf.String(), `error="boom bam"`) {
		t.Fatalf("expected quoted error attr, got %q", buf.String())
	}
	if got := Error(nil).Value.String(); got != "<nil>" {
		t.Fatalf("expected <nil> for nil error, got %q", got)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should never be enabled")
	}
	// Must not panic.
	logger.Info("ignored", Duration("d", time.Second))
}
