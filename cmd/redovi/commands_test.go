package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"redovi/internal/config"
	"redovi/internal/history"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
	if _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateReportsBadValues(t *testing.T) {
	env := setupCLITestEnv(t)
	writeTestConfig(t, env, "\n[workspace]\nstale_hours = 0\n")

	if _, err := runCLI(t, env, "config", "validate"); err == nil {
		t.Fatal("expected validation failure")
	}
}

func TestCheckListsToolsAndFailsWhenMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	writeStub(t, env.binDir, "ffmpeg", "#!/bin/sh\necho 'ffmpeg version 7.1-test Copyright'\n")

	out, err := runCLI(t, env, "check", env.mediaDir)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "ffmpeg version 7.1-test Copyright")
	requireContains(t, out, "Output directory")

	if err := os.Remove(filepath.Join(env.binDir, "dovi_tool")); err != nil {
		t.Fatalf("remove stub: %v", err)
	}
	out, err = runCLI(t, env, "check", env.mediaDir)
	if err == nil {
		t.Fatalf("expected missing dependency error\n%s", out)
	}
	requireContains(t, err.Error(), "dovi_tool")
}

func TestHistoryCommandListsRunsAndFiles(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	writeMedia(t, env.mediaDir, "Movie.mkv")
	if _, err := runCLI(t, env, "run", filepath.Join(env.mediaDir, "Movie.mkv")); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, err = runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Movie.mkv")
	requireContains(t, out, "all_succeeded")
	requireContains(t, out, "1/1")

	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store, err := history.OpenConfig(cfg)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	runs, err := store.RecentRuns(context.Background(), 1)
	store.Close()
	if err != nil || len(runs) != 1 {
		t.Fatalf("recent runs: %v (%d)", err, len(runs))
	}

	out, err = runCLI(t, env, "history", "--run", runs[0].ID[:shortIDLen])
	if err != nil {
		t.Fatalf("history --run: %v", err)
	}
	requireContains(t, out, runs[0].ID)
	requireContains(t, out, "completed")
	requireContains(t, out, "Movie_ReDoVi.mkv")

	if _, err := runCLI(t, env, "history", "--run", "does-not-exist"); err == nil {
		t.Fatal("expected unknown run error")
	}

	out, err = runCLI(t, env, "history", "--prune", "1ns")
	if err != nil {
		t.Fatalf("history --prune: %v", err)
	}
	requireContains(t, out, "Pruned 1 runs")
}

func TestCleanupRemovesStaleWorkspaces(t *testing.T) {
	env := setupCLITestEnv(t)
	stale := filepath.Join(env.mediaDir, "temp")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	artifact := filepath.Join(stale, "Movie_temp.hevc")
	if err := os.WriteFile(artifact, []byte("x"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	for _, p := range []string{artifact, stale} {
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	out, err := runCLI(t, env, "cleanup", "--list", env.mediaDir)
	if err != nil {
		t.Fatalf("cleanup --list: %v", err)
	}
	requireContains(t, out, stale)
	requireContains(t, out, "2d")

	out, err = runCLI(t, env, "cleanup", env.mediaDir)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	requireContains(t, out, "Removed 1 stale workspaces")
	requireMissing(t, stale)

	out, err = runCLI(t, env, "cleanup", "--list", env.mediaDir)
	if err != nil {
		t.Fatalf("cleanup --list: %v", err)
	}
	requireContains(t, out, "No workspaces found")
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"Name", "Count"},
		[][]string{{"alpha", "1"}, {"beta"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	for _, want := range []string{"Name", "Count", "alpha", "beta"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "NAME") || strings.Contains(out, "COUNT") {
		t.Fatalf("expected headers rendered as given:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty render for no headers")
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatAge(30 * time.Minute); got != "30m" {
		t.Fatalf("formatAge = %q", got)
	}
	if got := formatAge(50 * time.Hour); got != "2d" {
		t.Fatalf("formatAge = %q", got)
	}
	if got := formatBytes(512); got != "512 B" {
		t.Fatalf("formatBytes = %q", got)
	}
	if got := formatBytes(3 << 30); got != "3.0 GiB" {
		t.Fatalf("formatBytes = %q", got)
	}
	if got := formatElapsed(0); got != "-" {
		t.Fatalf("formatElapsed = %q", got)
	}
}
