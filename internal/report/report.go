// Package report renders a batch outcome as a YAML document for archiving or
// downstream automation.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"redovi/internal/batch"
	"redovi/internal/job"
	"redovi/internal/services"
)

// Report is the serialized form of one run.
type Report struct {
	RunID      string    `yaml:"run_id,omitempty"`
	Source     string    `yaml:"source"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	Settings   Settings  `yaml:"settings"`
	Outcome    string    `yaml:"outcome"`
	Summary    string    `yaml:"summary"`
	Total      int       `yaml:"total"`
	Succeeded  int       `yaml:"succeeded"`
	Files      []File    `yaml:"files"`
}

// Settings echoes the encode settings used for every file.
type Settings struct {
	Quality      int    `yaml:"quality"`
	Backend      string `yaml:"backend"`
	Preset       string `yaml:"preset"`
	AudioMode    string `yaml:"audio_mode"`
	AudioBitrate string `yaml:"audio_bitrate,omitempty"`
	Retention    string `yaml:"retention"`
}

// File is one file's entry.
type File struct {
	Source    string  `yaml:"source"`
	Output    string  `yaml:"output,omitempty"`
	State     string  `yaml:"state"`
	ElapsedS  float64 `yaml:"elapsed_seconds"`
	ErrorKind string  `yaml:"error_kind,omitempty"`
	Error     string  `yaml:"error,omitempty"`
}

// Build assembles a report from a finished batch.
func Build(runID, source string, template job.Request, started time.Time, result batch.Result) Report {
	settings := Settings{
		Quality:   template.Quality,
		Backend:   string(template.Backend),
		Preset:    template.Preset,
		AudioMode: string(template.AudioMode),
		Retention: string(template.Retention),
	}
	if template.AudioMode.Converts() {
		settings.AudioBitrate = template.AudioBitrate
	}

	rep := Report{
		RunID:      runID,
		Source:     source,
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
		Settings:   settings,
		Outcome:    string(result.Outcome()),
		Summary:    result.Summary(),
		Total:      result.Total,
		Succeeded:  result.Succeeded,
		Files:      make([]File, 0, len(result.Files)),
	}
	for _, fr := range result.Files {
		entry := File{
			Source:   fr.Source,
			State:    string(fr.State),
			ElapsedS: fr.Elapsed.Round(time.Millisecond).Seconds(),
		}
		if fr.Err == nil {
			entry.Output = fr.Output
		} else {
			entry.ErrorKind = string(services.Classify(fr.Err))
			entry.Error = fr.Err.Error()
		}
		rep.Files = append(rep.Files, entry)
	}
	return rep
}

// Encode writes rep as YAML.
func Encode(w io.Writer, rep Report) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return encoder.Close()
}

// WriteFile writes rep to path via a temporary file in the same directory.
func WriteFile(path string, rep Report) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.yaml")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if err := Encode(tmp, rep); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move report into place: %w", err)
	}
	return nil
}
