package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"redovi/internal/abort"
	"redovi/internal/batch"
	"redovi/internal/config"
	"redovi/internal/deps"
	"redovi/internal/history"
	"redovi/internal/job"
	"redovi/internal/logging"
	"redovi/internal/metrics"
	"redovi/internal/pipeline"
	"redovi/internal/preflight"
	"redovi/internal/progress"
	"redovi/internal/report"
	"redovi/internal/services"
	"redovi/internal/tools"
)

// errRunAborted wraps context.Canceled so main exits non-zero without
// repeating the abort message.
var errRunAborted = fmt.Errorf("run aborted: %w", context.Canceled)

type runOptions struct {
	output       string
	quality      int
	backend      string
	preset       string
	audio        string
	audioBitrate string
	retention    string
	report       string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <file|directory>",
		Short: "Re-encode a Dolby Vision file, or every MKV/MP4 in a folder",
		Long: `Re-encode a Dolby Vision source while keeping its RPU metadata.

Given a file, that file is processed. Given a directory, every .mkv and .mp4
directly inside it is processed in order; a failing file is reported and the
batch moves on. Output files are named <name>_ReDoVi.mkv and written next to
the source unless --output is set.

Flags override the [encoding] and [audio] defaults from the config file.
Interrupt once to stop the running tool (it receives SIGTERM) and skip the
remaining files; interrupt again to exit immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReencode(cmd, ctx, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "Output directory (default: next to each source)")
	flags.IntVarP(&opts.quality, "quality", "q", 0, fmt.Sprintf("Quality %d (best) to %d (smallest)", job.MinQuality, job.MaxQuality))
	flags.StringVarP(&opts.backend, "backend", "b", "", "Encoder backend: cuda, qsv or cpu")
	flags.StringVarP(&opts.preset, "preset", "p", "", "Encoder preset for the backend")
	flags.StringVarP(&opts.audio, "audio", "a", "", "Audio conversion: none, stereo, 5.1 or 7.1")
	flags.StringVar(&opts.audioBitrate, "audio-bitrate", "", "AAC bitrate when converting audio: "+strings.Join(job.AudioBitrates, ", "))
	flags.StringVar(&opts.retention, "retention", "", "Keep or remove the source audio tracks: keep or remove")
	flags.StringVar(&opts.report, "report", "", "Write a YAML report of the run to this path")
	return cmd
}

// buildTemplate applies the flags that were set on top of the config defaults.
func buildTemplate(cmd *cobra.Command, cfg *config.Config, opts runOptions) (job.Request, error) {
	tmpl, err := cfg.JobTemplate()
	if err != nil {
		return job.Request{}, services.Wrap(services.ErrConfiguration, "run", "job defaults", "", err)
	}
	flags := cmd.Flags()

	if flags.Changed("quality") {
		tmpl.Quality = opts.quality
	}
	if flags.Changed("backend") {
		backend, err := job.ParseBackend(opts.backend)
		if err != nil {
			return job.Request{}, flagError("--backend", err)
		}
		tmpl.Backend = backend
		if !flags.Changed("preset") && !backend.HasPreset(tmpl.Preset) {
			tmpl.Preset = backend.DefaultPreset()
		}
	}
	if flags.Changed("preset") {
		tmpl.Preset = strings.ToLower(strings.TrimSpace(opts.preset))
	}
	if flags.Changed("audio") {
		mode, err := job.ParseAudioMode(opts.audio)
		if err != nil {
			return job.Request{}, flagError("--audio", err)
		}
		tmpl.AudioMode = mode
	}
	if flags.Changed("audio-bitrate") {
		tmpl.AudioBitrate = strings.ToLower(strings.TrimSpace(opts.audioBitrate))
	}
	if flags.Changed("retention") {
		retention, err := job.ParseRetention(opts.retention)
		if err != nil {
			return job.Request{}, flagError("--retention", err)
		}
		tmpl.Retention = retention
	}
	if output := strings.TrimSpace(opts.output); output != "" {
		dir, err := absPath(output)
		if err != nil {
			return job.Request{}, flagError("--output", err)
		}
		tmpl.OutputDir = dir
	}
	return tmpl, nil
}

func flagError(flag string, err error) error {
	return services.Wrap(services.ErrValidation, "run", "flags", flag, err)
}

func absPath(path string) (string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

func runReencode(cmd *cobra.Command, ctx *commandContext, target string, opts runOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	target, err = absPath(target)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		return services.Wrap(services.ErrIO, "run", "stat source", target, err)
	}
	isBatch := info.IsDir()

	tmpl, err := buildTemplate(cmd, cfg, opts)
	if err != nil {
		return err
	}
	if tmpl.OutputDir != "" {
		if err := os.MkdirAll(tmpl.OutputDir, 0o755); err != nil {
			return services.Wrap(services.ErrIO, "run", "create output dir", tmpl.OutputDir, err)
		}
	}
	sample := target
	if isBatch {
		sample = filepath.Join(target, "sample.mkv")
	}
	if err := tmpl.ForSource(sample).Validate(); err != nil {
		return err
	}

	if missing := deps.Missing(deps.CheckBinaries(deps.Requirements(cfg))); len(missing) > 0 {
		return missingToolsError(missing)
	}
	check := preflight.Target{OutputDir: tmpl.ForSource(sample).OutputDir}
	if !isBatch {
		check.Source = target
	}
	if err := preflight.Err(preflight.RunAll(cmd.Context(), cfg, check)); err != nil {
		return err
	}

	client, err := tools.New(tools.Binaries{
		FFmpeg:   cfg.Tools.FFmpeg,
		DoviTool: cfg.Tools.DoviTool,
		MKVMerge: cfg.Tools.MKVMerge,
	}, tools.WithLogger(logger), tools.WithTerminateGrace(cfg.TerminateGrace()))
	if err != nil {
		return err
	}

	started := time.Now()
	mode := history.ModeFile
	if isBatch {
		mode = history.ModeBatch
	}
	stats := metrics.NewRecorder()
	observers := []pipeline.Observer{stats}
	store, runID := beginHistory(cmd, cfg, logger, target, mode)
	if store != nil {
		defer store.Close()
		observers = append(observers, history.NewRecorder(store, runID, logger))
	}
	runLogger := logger.With(logging.String(logging.FieldRunID, runID))

	token := &abort.Token{}
	runCtx := services.WithRunID(token.Start(cmd.Context()), runID)
	stopSignals := watchSignals(token, runLogger, cmd.ErrOrStderr())
	defer stopSignals()

	// The orchestrator and tools take run_id from runCtx.
	orchestrator := pipeline.New(client,
		pipeline.WithLogger(logger),
		pipeline.WithObserver(pipeline.Observers(observers...)),
		pipeline.WithWorkspaceDirName(cfg.Workspace.DirName),
	)
	display := newProgressDisplay(cmd.OutOrStdout(), runLogger)
	runner := batch.NewRunner(orchestrator,
		batch.WithLogger(runLogger),
		batch.WithFileStarted(display.fileStarted),
		batch.WithFileFinished(display.fileFinished),
	)

	sink := progress.Multi(display.sink(), stats.Progress)
	var result batch.Result
	if isBatch {
		result, err = runner.Run(runCtx, target, tmpl, sink)
		if err != nil {
			return err
		}
	} else {
		result = runner.RunFiles(runCtx, []string{target}, tmpl, sink)
	}
	if token.Requested() {
		runLogger.Info("run stopped on user request",
			logging.Int("processed", len(result.Files)),
			logging.Int("total", result.Total),
			logging.String(logging.FieldEventType, "run_stopped"),
		)
	}

	if store != nil {
		summary := history.Summary{
			Total:     result.Total,
			Succeeded: result.Succeeded,
			Failed:    len(result.Failures),
			Outcome:   string(result.Outcome()),
		}
		if err := store.FinishRun(cmd.Context(), runID, summary); err != nil {
			logging.WarnWithContext(runLogger, "failed to record run summary", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run shows as incomplete in history"),
			)
		}
	}
	if err := stats.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logging.WarnWithContext(runLogger, "failed to write metrics textfile", "metrics_write_failed",
			logging.String("path", cfg.Metrics.Textfile),
			logging.Error(err),
		)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Message())
	if isBatch {
		for _, f := range result.Failures {
			fmt.Fprintf(out, "  %s: %v\n", filepath.Base(f.File), f.Err)
		}
	}

	if path := strings.TrimSpace(opts.report); path != "" {
		reportPath, err := absPath(path)
		if err != nil {
			return fmt.Errorf("resolve report path: %w", err)
		}
		if err := report.WriteFile(reportPath, report.Build(runID, target, tmpl, started, result)); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", reportPath)
	}

	return runError(result)
}

// beginHistory opens the store and records the run. History problems are
// logged and the run continues without it.
func beginHistory(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, source string, mode history.Mode) (*history.Store, string) {
	runID := uuid.NewString()
	if !cfg.History.Enabled {
		return nil, runID
	}
	store, err := history.OpenConfig(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is not recorded"),
		)
		return nil, runID
	}
	run, err := store.BeginRun(cmd.Context(), source, mode)
	if err != nil {
		_ = store.Close()
		logging.WarnWithContext(logger, "failed to record run start", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is not recorded"),
		)
		return nil, runID
	}
	return store, run.ID
}

// runError maps the batch outcome to the command's exit status. A single-file
// failure returns the pipeline error itself so its message reaches stderr.
func runError(result batch.Result) error {
	switch result.Outcome() {
	case batch.OutcomeAborted:
		return errRunAborted
	case batch.OutcomePartial:
		if result.Total == 1 && len(result.Failures) == 1 {
			return result.Failures[0].Err
		}
		return fmt.Errorf("%d of %d files failed", len(result.Failures), result.Total)
	default:
		return nil
	}
}
