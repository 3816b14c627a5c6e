package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"redovi/internal/job"
	"redovi/internal/logging"
	"redovi/internal/progress"
	"redovi/internal/services"
	"redovi/internal/tools"
	"redovi/internal/workspace"
)

// Stages is the set of external operations the orchestrator drives.
// *tools.Client satisfies it.
type Stages interface {
	ExtractVideo(ctx context.Context, input, output string, backend job.Backend) error
	ExtractRPU(ctx context.Context, hevc, rpu string) error
	Reencode(ctx context.Context, opts tools.ReencodeOptions, onProgress func(float64)) error
	InjectRPU(ctx context.Context, hevc, rpu, output string) error
	TranscodeAudio(ctx context.Context, input, output string, mode job.AudioMode, bitrate string) (string, error)
	Remux(ctx context.Context, in tools.RemuxInput) error
}

// StageTiming records how long one stage ran.
type StageTiming struct {
	State   State
	Elapsed time.Duration
}

// Result reports the outcome of one file's run. Output is set only when the
// run completed. Progress is the last overall percentage reported.
type Result struct {
	Source   string
	Output   string
	State    State
	Progress float64
	Elapsed  time.Duration
	Stages   []StageTiming
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers a lifecycle observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithWorkspaceDirName overrides the scratch directory name under the output
// directory.
func WithWorkspaceDirName(name string) Option {
	return func(o *Orchestrator) {
		o.dirName = name
	}
}

// Orchestrator runs the per-file state machine. It holds no per-run state and
// may be reused sequentially.
type Orchestrator struct {
	stages   Stages
	logger   *slog.Logger
	observer Observer
	dirName  string
}

// New constructs an orchestrator around the given stage executors.
func New(stages Stages, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stages:   stages,
		logger:   logging.NewNop(),
		observer: NopObserver{},
		dirName:  workspace.DefaultDirName,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "pipeline")
	return o
}

// run carries the state for one invocation of Run.
type run struct {
	req      job.Request
	ws       *workspace.Workspace
	tracker  *progress.Tracker
	audioSrc string
	result   Result
}

// Run processes one source file. The workspace is removed before Run returns
// regardless of outcome. The returned error carries the failing stage name and
// keeps the underlying marker (services.ErrNoMetadata, ErrExternalTool, ErrIO,
// ErrValidation) reachable through errors.Is; an abort is marked
// services.ErrAborted and reported with StateAborted.
func (o *Orchestrator) Run(ctx context.Context, req job.Request, sink progress.Sink) (Result, error) {
	started := time.Now()
	ctx = services.WithSource(ctx, req.Source)
	logger := logging.WithContext(ctx, o.logger)

	r := &run{
		req:     req,
		tracker: progress.NewTracker(sink),
		result:  Result{Source: req.Source, State: StateCreated},
	}

	err := o.execute(ctx, r)
	r.result.Elapsed = time.Since(started)
	r.result.Progress, _ = r.tracker.Last()

	switch {
	case err == nil:
		r.result.State = StateCompleted
		r.result.Output = r.ws.Output()
		logger.Info("dolby vision re-encode completed",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.String("output", r.result.Output),
			logging.Duration("elapsed", r.result.Elapsed),
		)
	case services.Classify(err) == services.KindAborted:
		r.result.State = StateAborted
		logger.Info("run aborted by request",
			logging.String(logging.FieldEventType, "run_aborted"),
			logging.Float64("progress", r.result.Progress),
			logging.Duration("elapsed", r.result.Elapsed),
		)
	default:
		r.result.State = StateFailed
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			logging.Error(err),
			logging.Float64("progress", r.result.Progress),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
		)
	}

	o.observer.RunFinished(req, r.result, err)
	return r.result, err
}

func (o *Orchestrator) execute(ctx context.Context, r *run) error {
	if err := r.req.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return abortedBefore(StateCreated, err)
	}

	ws, err := workspace.Create(r.req.OutputDir, r.req.BaseName(),
		workspace.WithDirName(o.dirName),
		workspace.WithLogger(o.logger),
	)
	if err != nil {
		return err
	}
	defer ws.Destroy()
	r.ws = ws

	for _, state := range StageStates() {
		if err := ctx.Err(); err != nil {
			return abortedBefore(state, err)
		}
		if err := o.runStage(ctx, r, state); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return abortedBefore(StateCompleted, err)
	}
	r.tracker.Complete()
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, r *run, state State) error {
	phase, _ := state.Phase()
	stageCtx := services.WithStage(ctx, string(state))
	logger := logging.WithContext(stageCtx, o.logger)

	r.result.State = state
	r.tracker.Enter(phase)
	o.observer.StageStarted(r.req, state)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	started := time.Now()
	err := o.dispatch(stageCtx, r, state)
	elapsed := time.Since(started)
	r.result.Stages = append(r.result.Stages, StageTiming{State: state, Elapsed: elapsed})

	if err != nil {
		err = stageError(ctx, state, err)
		o.observer.StageFinished(r.req, state, elapsed, err)
		return err
	}

	r.tracker.Finish(phase)
	o.observer.StageFinished(r.req, state, elapsed, nil)
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", elapsed),
	)
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, r *run, state State) error {
	req, ws := r.req, r.ws
	switch state {
	case StateDemuxing:
		return o.stages.ExtractVideo(ctx, req.Source, ws.Path(workspace.ArtifactVideo), req.Backend)
	case StateExtractingMetadata:
		return o.stages.ExtractRPU(ctx, ws.Path(workspace.ArtifactVideo), ws.Path(workspace.ArtifactRPU))
	case StateReencoding:
		return o.stages.Reencode(ctx, tools.ReencodeOptions{
			Input:   req.Source,
			Output:  ws.Path(workspace.ArtifactReencoded),
			Quality: req.Quality,
			Backend: req.Backend,
			Preset:  req.Preset,
		}, func(pct float64) {
			r.tracker.Update(progress.PhaseReencode, pct)
		})
	case StateReextractingVideo:
		return o.stages.ExtractVideo(ctx, ws.Path(workspace.ArtifactReencoded), ws.Path(workspace.ArtifactReencodedVideo), req.Backend)
	case StateInjectingMetadata:
		return o.stages.InjectRPU(ctx, ws.Path(workspace.ArtifactReencodedVideo), ws.Path(workspace.ArtifactRPU), ws.Path(workspace.ArtifactFinalVideo))
	case StateTranscodingAudio:
		src, err := o.stages.TranscodeAudio(ctx, req.Source, ws.Path(workspace.ArtifactAudio), req.AudioMode, req.AudioBitrate)
		if err != nil {
			return err
		}
		r.audioSrc = src
		return nil
	case StateRemuxing:
		return o.stages.Remux(ctx, tools.RemuxInput{
			Video:     ws.Path(workspace.ArtifactFinalVideo),
			Audio:     r.audioSrc,
			Original:  req.Source,
			Output:    ws.Output(),
			Retention: req.Retention,
		})
	default:
		return fmt.Errorf("no stage for state %s", state)
	}
}

// stageError prefixes err with the stage name. A failure observed after the
// run context was cancelled is reported as an abort.
func stageError(ctx context.Context, state State, err error) error {
	if ctx.Err() != nil && !errors.Is(err, services.ErrAborted) {
		return services.Wrap(services.ErrAborted, string(state), "", "aborted by request", err)
	}
	return fmt.Errorf("%s: %w", state, err)
}

func abortedBefore(state State, cause error) error {
	return services.Wrap(services.ErrAborted, string(state), "", "aborted before stage start", cause)
}
