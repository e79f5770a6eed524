package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks requests rejected before a job is created.
	ErrValidation = errors.New("validation error")
	// ErrExternalTool marks failures reported by or around the fetch tool.
	ErrExternalTool = errors.New("external tool error")
	// ErrNotFound marks lookups of unknown or evicted jobs.
	ErrNotFound = errors.New("not found")
	// ErrNotReady marks retrieval attempted before a job completed.
	ErrNotReady = errors.New("not ready")
	// ErrTimeout marks jobs that exceeded their wall-clock or stall limit.
	ErrTimeout = errors.New("timeout")
	// ErrBusy marks submissions rejected because the active-job cap is reached.
	ErrBusy = errors.New("too many active downloads")
)

// Category is the user-facing classification of a fetch failure.
type Category string

const (
	CategoryNetwork     Category = "network"
	CategoryUnsupported Category = "unsupported"
	CategoryDisk        Category = "disk"
	CategoryTimeout     Category = "timeout"
	CategoryCrash       Category = "crash"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Categorizer allows errors to declare their failure category directly.
type Categorizer interface {
	FailureCategory() Category
}

// Categorize maps a job failure to its user-facing category.
func Categorize(err error) Category {
	var categorizer Categorizer
	if errors.As(err, &categorizer) {
		return categorizer.FailureCategory()
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	return CategoryCrash
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
