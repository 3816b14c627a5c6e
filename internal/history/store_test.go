package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"redovi/internal/history"
	"redovi/internal/job"
	"redovi/internal/pipeline"
	"redovi/internal/services"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	for i := 0; i < 2; i++ {
		store, err := history.Open(path)
		if err != nil {
			t.Fatalf("Open #%d failed: %v", i+1, err)
		}
		if store.Path() != path {
			t.Fatalf("path = %q", store.Path())
		}
		_ = store.Close()
	}
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, "/media/movies", history.ModeBatch)
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected run id")
	}

	if err := store.RecordFile(ctx, run.ID, history.FileRecord{
		Source: "/media/movies/a.mkv", Output: "/media/movies/a_ReDoVi.mkv", State: "completed", Elapsed: 1500 * time.Millisecond,
	}); err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}
	if err := store.RecordFile(ctx, run.ID, history.FileRecord{
		Source: "/media/movies/b.mkv", State: "failed", ErrorKind: "no_metadata", ErrorMessage: "no dolby vision metadata",
	}); err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}
	if err := store.FinishRun(ctx, run.ID, history.Summary{Total: 2, Succeeded: 1, Failed: 1, Outcome: "partial"}); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil || got == nil {
		t.Fatalf("GetRun = %v, %v", got, err)
	}
	if !got.Finished() || got.Total != 2 || got.Succeeded != 1 || got.Outcome != "partial" || got.Mode != history.ModeBatch {
		t.Fatalf("unexpected run %+v", got)
	}

	files, err := store.Files(ctx, run.ID)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Elapsed != 1500*time.Millisecond || files[0].Output == "" {
		t.Fatalf("unexpected first record %+v", files[0])
	}
	if files[1].ErrorKind != "no_metadata" || files[1].Output != "" {
		t.Fatalf("unexpected second record %+v", files[1])
	}
}

func TestGetRunUnknown(t *testing.T) {
	store := openStore(t)
	got, err := store.GetRun(context.Background(), "missing")
	if err != nil || got != nil {
		t.Fatalf("expected nil run, got %v %v", got, err)
	}
	if err := store.FinishRun(context.Background(), "missing", history.Summary{}); err == nil {
		t.Fatal("expected FinishRun on unknown run to fail")
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	var ids []string
	for _, src := range []string{"a.mkv", "b.mkv", "c.mkv"} {
		run, err := store.BeginRun(ctx, src, history.ModeFile)
		if err != nil {
			t.Fatalf("BeginRun failed: %v", err)
		}
		ids = append(ids, run.ID)
		time.Sleep(2 * time.Millisecond)
	}
	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Fatalf("unexpected order: %+v", runs)
	}
}

func TestPruneRemovesOldRuns(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run, err := store.BeginRun(ctx, "old.mkv", history.ModeFile)
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := store.RecordFile(ctx, run.ID, history.FileRecord{Source: "old.mkv", State: "completed"}); err != nil {
		t.Fatalf("RecordFile failed: %v", err)
	}
	removed, err := store.Prune(ctx, time.Now().Add(time.Minute))
	if err != nil || removed != 1 {
		t.Fatalf("Prune = %d, %v", removed, err)
	}
	files, err := store.Files(ctx, run.ID)
	if err != nil || len(files) != 0 {
		t.Fatalf("expected file records to be pruned, got %d (%v)", len(files), err)
	}
}

func TestRecorderWritesOutcome(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run, err := store.BeginRun(ctx, "movie.mkv", history.ModeFile)
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	rec := history.NewRecorder(store, run.ID, nil)

	req := job.Default().ForSource("/media/movie.mkv")
	runErr := services.Wrap(services.ErrNoMetadata, "extracting_metadata", "", "source has no Dolby Vision RPU", nil)
	rec.RunFinished(req, pipeline.Result{Source: req.Source, State: pipeline.StateFailed, Elapsed: time.Second}, runErr)

	files, err := store.Files(ctx, run.ID)
	if err != nil || len(files) != 1 {
		t.Fatalf("Files = %v, %v", files, err)
	}
	if files[0].State != "failed" || files[0].ErrorKind != string(services.KindNoMetadata) {
		t.Fatalf("unexpected record %+v", files[0])
	}
}

func TestRunsWithinOneSecondKeepOrder(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	whole := time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC)
	clock := whole
	history.SetClock(store, func() time.Time { return clock })

	first, err := store.BeginRun(ctx, "first.mkv", history.ModeFile)
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	clock = whole.Add(500 * time.Millisecond)
	second, err := store.BeginRun(ctx, "second.mkv", history.ModeFile)
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second.ID || runs[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if !runs[0].StartedAt.Equal(clock) || !runs[1].StartedAt.Equal(whole) {
		t.Fatalf("start times not preserved: %v %v", runs[0].StartedAt, runs[1].StartedAt)
	}

	removed, err := store.Prune(ctx, whole.Add(250*time.Millisecond))
	if err != nil || removed != 1 {
		t.Fatalf("Prune = %d, %v", removed, err)
	}
	if got, err := store.GetRun(ctx, first.ID); err != nil || got != nil {
		t.Fatalf("expected first run pruned, got %v %v", got, err)
	}
	if got, err := store.GetRun(ctx, second.ID); err != nil || got == nil {
		t.Fatalf("expected second run kept, got %v %v", got, err)
	}
}
