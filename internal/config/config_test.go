package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"redovi/internal/config"
	"redovi/internal/job"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, ".local", "share", "redovi", "logs"); cfg.Paths.LogDir != want {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "redovi", "history.db"); cfg.HistoryPath() != want {
		t.Fatalf("unexpected history path: got %q want %q", cfg.HistoryPath(), want)
	}
	if cfg.Tools.FFmpeg != "ffmpeg" || cfg.Tools.DoviTool != "dovi_tool" || cfg.Tools.MKVMerge != "mkvmerge" {
		t.Fatalf("unexpected tool defaults: %+v", cfg.Tools)
	}
	if cfg.Workspace.DirName != "temp" {
		t.Fatalf("unexpected workspace dir name %q", cfg.Workspace.DirName)
	}
}

func TestJobTemplateMatchesStockDefaults(t *testing.T) {
	cfg := config.Default()
	tmpl, err := cfg.JobTemplate()
	if err != nil {
		t.Fatalf("JobTemplate returned error: %v", err)
	}
	if tmpl != job.Default() {
		t.Fatalf("template %+v differs from job defaults %+v", tmpl, job.Default())
	}
}

func TestLoadFileOverridesAndNormalizes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "redovi.toml")

	override := config.Default()
	override.Encoding.Backend = "CPU"
	override.Encoding.Preset = "VerySlow"
	override.Encoding.Quality = 18
	override.Audio.Mode = "5.1 Surround"
	override.Audio.Retention = "Remove"
	override.Logging.Format = "JSON"
	override.Metrics.Textfile = "~/metrics/redovi.prom"
	data, err := toml.Marshal(override)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lowercased format, got %q", cfg.Logging.Format)
	}
	tmpl, err := cfg.JobTemplate()
	if err != nil {
		t.Fatalf("JobTemplate returned error: %v", err)
	}
	if tmpl.Backend != job.BackendCPU || tmpl.Preset != "veryslow" || tmpl.Quality != 18 {
		t.Fatalf("unexpected encoding template %+v", tmpl)
	}
	if tmpl.AudioMode != job.AudioSurround || tmpl.Retention != job.RetainRemove {
		t.Fatalf("unexpected audio template %+v", tmpl)
	}
	if !filepath.IsAbs(cfg.Metrics.Textfile) || strings.HasPrefix(cfg.Metrics.Textfile, "~") {
		t.Fatalf("expected expanded metrics path, got %q", cfg.Metrics.Textfile)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"quality", func(c *config.Config) { c.Encoding.Quality = 50 }, "quality"},
		{"preset", func(c *config.Config) { c.Encoding.Preset = "placebo" }, "preset"},
		{"backend", func(c *config.Config) { c.Encoding.Backend = "vaapi" }, "encoding.backend"},
		{"dir name", func(c *config.Config) { c.Workspace.DirName = "a/b" }, "workspace.dir_name"},
		{"stale hours", func(c *config.Config) { c.Workspace.StaleHours = 0 }, "workspace.stale_hours"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[encoding]\nqualty = 20\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}
