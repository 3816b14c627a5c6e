package batch

import (
	"fmt"
	"time"

	"redovi/internal/pipeline"
)

// Outcome summarizes a batch.
type Outcome string

const (
	OutcomeNoFiles      Outcome = "no_files"
	OutcomeAllSucceeded Outcome = "all_succeeded"
	OutcomePartial      Outcome = "partial"
	OutcomeAborted      Outcome = "aborted"
)

// Failure records one file that did not complete.
type Failure struct {
	File string
	Err  error
}

// FileResult is the per-file record kept for reports and history.
type FileResult struct {
	Source  string
	Output  string
	State   pipeline.State
	Elapsed time.Duration
	Err     error
}

// Result is the outcome of one batch run.
type Result struct {
	Total     int
	Succeeded int
	Failures  []Failure
	Aborted   bool
	Files     []FileResult
}

// Outcome classifies the batch.
func (r Result) Outcome() Outcome {
	switch {
	case r.Aborted:
		return OutcomeAborted
	case r.Total == 0:
		return OutcomeNoFiles
	case r.Succeeded == r.Total:
		return OutcomeAllSucceeded
	default:
		return OutcomePartial
	}
}

// Summary returns a one-line description of the outcome.
func (r Result) Summary() string {
	switch r.Outcome() {
	case OutcomeNoFiles:
		return "no files found"
	case OutcomeAborted:
		return fmt.Sprintf("aborted after %d of %d", r.Succeeded, r.Total)
	default:
		return fmt.Sprintf("%d of %d succeeded", r.Succeeded, r.Total)
	}
}

// Message is the operator-facing completion line.
func (r Result) Message() string {
	switch r.Outcome() {
	case OutcomeNoFiles:
		return "No MKV or MP4 files found in the selected folder"
	case OutcomeAborted:
		return fmt.Sprintf("Processing aborted after %d of %d files", r.Succeeded, r.Total)
	default:
		return fmt.Sprintf("Processed %d of %d files successfully", r.Succeeded, r.Total)
	}
}
