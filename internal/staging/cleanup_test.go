package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"redovi/internal/logging"
	"redovi/internal/workspace"
)

func makeWorkspace(t *testing.T, root string, age time.Duration, files ...string) string {
	t.Helper()
	dir := filepath.Join(root, "temp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	stamp := time.Now().Add(-age)
	_ = filepath.Walk(dir, func(path string, _ os.FileInfo, _ error) error {
		return os.Chtimes(path, stamp, stamp)
	})
	return dir
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, "temp", time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldWorkspaces(t *testing.T) {
	root := t.TempDir()
	old := makeWorkspace(t, root, 48*time.Hour, "Movie_temp.hevc", "Movie_rpu.bin")
	recent := makeWorkspace(t, filepath.Join(root, "Show"), time.Minute, "Episode_reencoded.mkv")

	result := CleanStale(context.Background(), root, "temp", 24*time.Hour, nil)

	if len(result.Removed) != 1 || result.Removed[0] != old {
		t.Fatalf("removed = %v, want [%s]", result.Removed, old)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("old workspace should have been removed")
	}
	if _, err := os.Stat(recent); err != nil {
		t.Fatal("recent workspace should still exist")
	}
}

func TestCleanStaleSkipsLockedWorkspace(t *testing.T) {
	root := t.TempDir()
	ws, err := workspace.Create(root, "Movie")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	defer ws.Destroy()
	stamp := time.Now().Add(-72 * time.Hour)
	_ = os.Chtimes(ws.Dir(), stamp, stamp)
	_ = os.Chtimes(filepath.Join(ws.Dir(), workspace.LockName), stamp, stamp)

	result := CleanStale(context.Background(), root, "temp", time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("locked workspace removed: %v", result.Removed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != ws.Dir() {
		t.Fatalf("skipped = %v", result.Skipped)
	}
}

func TestFindWorkspacesIgnoresUnrelatedDirectories(t *testing.T) {
	root := t.TempDir()
	unrelated := filepath.Join(root, "temp")
	if err := os.MkdirAll(unrelated, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(unrelated, "notes.txt"), []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := FindWorkspaces(root, "temp")
	if err != nil {
		t.Fatalf("FindWorkspaces returned error: %v", err)
	}
	if len(dirs) != 0 {
		t.Fatalf("expected unrelated temp dir to be ignored, got %+v", dirs)
	}
}

func TestFindWorkspacesReportsSizeAndNewestTime(t *testing.T) {
	root := t.TempDir()
	dir := makeWorkspace(t, root, 5*time.Hour, "A_temp.hevc", "A_rpu.bin")
	fresh := filepath.Join(dir, "A_final.hevc")
	if err := os.WriteFile(fresh, []byte("123456"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := FindWorkspaces(root, "")
	if err != nil || len(dirs) != 1 {
		t.Fatalf("FindWorkspaces = %+v, %v", dirs, err)
	}
	if dirs[0].Size != 14 {
		t.Fatalf("size = %d, want 14", dirs[0].Size)
	}
	if time.Since(dirs[0].ModTime) > time.Hour {
		t.Fatalf("newest file time not used: %v", dirs[0].ModTime)
	}
	if dirs[0].Locked {
		t.Fatal("unlocked workspace reported as locked")
	}
}
