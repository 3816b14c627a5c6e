package history

import (
	"context"
	"log/slog"
	"time"

	"redovi/internal/job"
	"redovi/internal/logging"
	"redovi/internal/pipeline"
	"redovi/internal/services"
)

const recordTimeout = 5 * time.Second

// Recorder writes one FileRecord per finished pipeline run. Write failures are
// logged and never affect the run.
type Recorder struct {
	pipeline.NopObserver
	store  *Store
	runID  string
	logger *slog.Logger
}

// NewRecorder returns an observer that records file outcomes under runID.
func NewRecorder(store *Store, runID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{store: store, runID: runID, logger: logger}
}

// RunFinished implements pipeline.Observer.
func (r *Recorder) RunFinished(req job.Request, result pipeline.Result, err error) {
	if r == nil || r.store == nil {
		return
	}
	rec := FileRecord{
		Source:     req.Source,
		Output:     result.Output,
		State:      string(result.State),
		Elapsed:    result.Elapsed,
		FinishedAt: time.Now().UTC(),
	}
	if err != nil {
		rec.ErrorKind = string(services.Classify(err))
		rec.ErrorMessage = err.Error()
	}

	// The run context may already be cancelled; the record is still wanted.
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if writeErr := r.store.RecordFile(ctx, r.runID, rec); writeErr != nil {
		logging.WarnWithContext(r.logger, "failed to record run history", "history_write_failed",
			logging.String(logging.FieldRunID, r.runID),
			logging.String(logging.FieldSource, req.Source),
			logging.Error(writeErr),
			logging.String(logging.FieldImpact, "file missing from redovi history"),
		)
	}
}
