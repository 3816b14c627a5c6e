package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"redovi/internal/batch"
	"redovi/internal/logging"
	"redovi/internal/progress"
)

const progressLogBucket = 5.0

// progressDisplay renders pipeline progress either as a terminal bar or, when
// stdout is not a terminal, as log lines sampled every few percent.
type progressDisplay struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	logger      *slog.Logger
	sampler     *logging.ProgressSampler
	bar         *progressbar.ProgressBar
	prefix      string
}

func newProgressDisplay(out io.Writer, logger *slog.Logger) *progressDisplay {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &progressDisplay{
		out:         out,
		interactive: isInteractive(out),
		logger:      logger,
		sampler:     logging.NewProgressSampler(progressLogBucket),
	}
}

func isInteractive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// fileStarted matches batch.WithFileStarted; index is 1-based.
func (d *progressDisplay) fileStarted(index, total int, source string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.prefix = ""
	if total > 1 {
		d.prefix = fmt.Sprintf("[%d/%d] ", index, total)
	}
	d.sampler.Reset()
	if !d.interactive {
		d.logger.Info("processing file",
			logging.String(logging.FieldSource, source),
			logging.Int("index", index),
			logging.Int("total", total),
			logging.String(logging.FieldEventType, "file_started"),
		)
		return
	}
	fmt.Fprintf(d.out, "%s%s\n", d.prefix, filepath.Base(source))
	d.bar = progressbar.NewOptions(100,
		progressbar.OptionSetWriter(d.out),
		progressbar.OptionSetDescription(d.prefix+"Starting"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(d.out) }),
	)
}

// update is the progress.Sink handed to the pipeline.
func (d *progressDisplay) update(percent float64, label string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.bar != nil {
		d.bar.Describe(d.prefix + label)
		_ = d.bar.Set(int(percent))
		return
	}
	if d.interactive || !d.sampler.ShouldLog(percent, label) {
		return
	}
	d.logger.Info("progress",
		logging.String(logging.FieldStage, label),
		logging.Float64("percent", percent),
		logging.String(logging.FieldEventType, "progress"),
	)
}

func (d *progressDisplay) sink() progress.Sink {
	return d.update
}

// fileFinished matches batch.WithFileFinished.
func (d *progressDisplay) fileFinished(_, _ int, result batch.FileResult) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.bar != nil {
		if result.Err == nil {
			_ = d.bar.Finish()
		} else {
			_ = d.bar.Exit()
			fmt.Fprintln(d.out)
		}
		d.bar = nil
	}
	if !d.interactive {
		return
	}
	if result.Err != nil {
		fmt.Fprintf(d.out, "%sFailed: %v\n", d.prefix, result.Err)
		return
	}
	fmt.Fprintf(d.out, "%sWrote %s (%s)\n", d.prefix, result.Output, formatElapsed(result.Elapsed))
}
