package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoMetadata    = errors.New("no dolby vision metadata")
	ErrExternalTool  = errors.New("external tool error")
	ErrIO            = errors.New("io error")
	ErrAborted       = errors.New("aborted")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ToolError reports a wrapped binary that exited unsuccessfully.
type ToolError struct {
	Stage    string
	Tool     string
	ExitCode int
	Tail     []string
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Stage)
	b.WriteString(": ")
	b.WriteString(e.Tool)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " exited with status %d", e.ExitCode)
	} else {
		b.WriteString(" failed")
	}
	if e.Err != nil && e.ExitCode < 0 {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if last := e.LastLine(); last != "" {
		b.WriteString(": ")
		b.WriteString(last)
	}
	return b.String()
}

// Unwrap exposes both the external tool marker and the underlying cause.
func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalTool}
	}
	return []error{ErrExternalTool, e.Err}
}

// LastLine returns the final non-blank diagnostic line, if any.
func (e *ToolError) LastLine() string {
	for i := len(e.Tail) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(e.Tail[i]); line != "" {
			return line
		}
	}
	return ""
}

// Kind classifies a terminal error for reporting.
type Kind string

const (
	KindNone       Kind = ""
	KindAborted    Kind = "aborted"
	KindNoMetadata Kind = "no_metadata"
	KindInvalid    Kind = "invalid"
	KindTool       Kind = "tool_failed"
	KindIO         Kind = "io_failed"
	KindFailed     Kind = "failed"
)

// Classify maps an error onto the kind recorded in history and metrics.
// Cancellation wins over every other marker so a deliberate abort is never
// reported as a failure.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrAborted), errors.Is(err, context.Canceled):
		return KindAborted
	case errors.Is(err, ErrNoMetadata):
		return KindNoMetadata
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return KindInvalid
	case errors.Is(err, ErrExternalTool):
		return KindTool
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindFailed
	}
}

// Hint returns a short operator-facing suggestion for the error kind.
func Hint(err error) string {
	switch Classify(err) {
	case KindNoMetadata:
		return "source has no Dolby Vision RPU; choose a Dolby Vision file"
	case KindInvalid:
		return "check job options and configuration"
	case KindTool:
		return "inspect the tool output tail in the error message"
	case KindIO:
		return "check output directory permissions and free space"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
