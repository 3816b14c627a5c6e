package batch

import (
	"context"
	"log/slog"

	"redovi/internal/job"
	"redovi/internal/logging"
	"redovi/internal/pipeline"
	"redovi/internal/progress"
	"redovi/internal/services"
)

// FileRunner processes one file. *pipeline.Orchestrator satisfies it.
type FileRunner interface {
	Run(ctx context.Context, req job.Request, sink progress.Sink) (pipeline.Result, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFileStarted registers a callback invoked before each file starts.
// index is 1-based.
func WithFileStarted(fn func(index, total int, source string)) Option {
	return func(r *Runner) {
		r.onStart = fn
	}
}

// WithFileFinished registers a callback invoked after each file finishes.
func WithFileFinished(fn func(index, total int, result FileResult)) Option {
	return func(r *Runner) {
		r.onFinish = fn
	}
}

// Runner processes every discovered file sequentially.
type Runner struct {
	files    FileRunner
	logger   *slog.Logger
	onStart  func(index, total int, source string)
	onFinish func(index, total int, result FileResult)
}

// NewRunner constructs a batch runner.
func NewRunner(files FileRunner, opts ...Option) *Runner {
	r := &Runner{files: files, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "batch")
	return r
}

// Run processes every matching file in sourceDir using template for the
// encode settings. The template's OutputDir, when empty, defaults to each
// file's own directory. A failing file is recorded and the batch continues;
// a cancellation stops the batch before the next file. The returned error is
// non-nil only when sourceDir cannot be listed.
func (r *Runner) Run(ctx context.Context, sourceDir string, template job.Request, sink progress.Sink) (Result, error) {
	files, err := Discover(sourceDir)
	if err != nil {
		return Result{}, err
	}
	return r.RunFiles(ctx, files, template, sink), nil
}

// RunFiles processes an explicit file list.
func (r *Runner) RunFiles(ctx context.Context, files []string, template job.Request, sink progress.Sink) Result {
	result := Result{Total: len(files)}
	if len(files) == 0 {
		r.logger.Info("no matching files found", logging.String(logging.FieldEventType, "batch_empty"))
		return result
	}

	r.logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("files", len(files)),
	)
	for i, file := range files {
		if ctx.Err() != nil {
			result.Aborted = true
			r.logger.Info("batch aborted before next file",
				logging.String(logging.FieldEventType, "batch_aborted"),
				logging.Int("remaining", len(files)-i),
			)
			break
		}
		if r.onStart != nil {
			r.onStart(i+1, len(files), file)
		}

		req := template.ForSource(file)
		res, runErr := r.files.Run(ctx, req, sink)
		fr := FileResult{Source: file, Output: res.Output, State: res.State, Elapsed: res.Elapsed, Err: runErr}
		result.Files = append(result.Files, fr)

		switch {
		case runErr == nil:
			result.Succeeded++
		case services.Classify(runErr) == services.KindAborted:
			result.Aborted = true
		default:
			result.Failures = append(result.Failures, Failure{File: file, Err: runErr})
			logging.WarnWithContext(r.logger, "file failed; continuing batch", "batch_file_failed",
				logging.String(logging.FieldSource, file),
				logging.Error(runErr),
				logging.String(logging.FieldErrorHint, services.Hint(runErr)),
				logging.String(logging.FieldImpact, "file skipped"),
			)
		}

		if r.onFinish != nil {
			r.onFinish(i+1, len(files), fr)
		}
		if result.Aborted {
			break
		}
	}

	r.logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.String("outcome", string(result.Outcome())),
		logging.String("summary", result.Summary()),
	)
	return result
}
