// Package metrics records per-stage and per-file counters for pipeline runs
// and writes them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"redovi/internal/job"
	"redovi/internal/pipeline"
	"redovi/internal/services"
)

const namespace = "redovi"

// Recorder is a pipeline.Observer backed by a private Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	files         *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	activeStage   *prometheus.GaugeVec
	lastRun       prometheus.Gauge
	lastDuration  prometheus.Gauge
	progress      prometheus.Gauge
}

// NewRecorder creates a recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_total",
				Help:      "Files processed, by terminal state",
			},
			[]string{"state"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Wall time spent in each pipeline stage",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"stage"},
		),
		stageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_failures_total",
				Help:      "Stage failures, by stage and error kind",
			},
			[]string{"stage", "kind"},
		),
		activeStage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stage_active",
				Help:      "1 while the stage is running",
			},
			[]string{"stage"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_file_finished_timestamp_seconds",
			Help:      "Unix time the most recent file finished",
		}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_file_duration_seconds",
			Help:      "Wall time of the most recent file",
		}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "file_progress_percent",
			Help:      "Overall progress of the current or most recent file",
		}),
	}
	r.registry.MustRegister(r.files, r.stageDuration, r.stageFailures, r.activeStage, r.lastRun, r.lastDuration, r.progress)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// StageStarted implements pipeline.Observer.
func (r *Recorder) StageStarted(_ job.Request, state pipeline.State) {
	r.activeStage.WithLabelValues(string(state)).Set(1)
}

// StageFinished implements pipeline.Observer.
func (r *Recorder) StageFinished(_ job.Request, state pipeline.State, elapsed time.Duration, err error) {
	stage := string(state)
	r.activeStage.WithLabelValues(stage).Set(0)
	r.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if err == nil {
		return
	}
	// An abort ends the stage early but is not a failure.
	if kind := services.Classify(err); kind != services.KindAborted {
		r.stageFailures.WithLabelValues(stage, string(kind)).Inc()
	}
}

// Progress is a progress.Sink that tracks the overall percentage.
func (r *Recorder) Progress(percent float64, _ string) {
	r.progress.Set(percent)
}

// RunFinished implements pipeline.Observer.
func (r *Recorder) RunFinished(_ job.Request, result pipeline.Result, _ error) {
	r.files.WithLabelValues(string(result.State)).Inc()
	r.lastRun.Set(float64(time.Now().Unix()))
	r.lastDuration.Set(result.Elapsed.Seconds())
}

// WriteTextfile atomically writes every metric to path. An empty path is a
// no-op.
func (r *Recorder) WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
