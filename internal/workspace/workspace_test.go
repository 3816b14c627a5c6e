package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"redovi/internal/services"
	"redovi/internal/workspace"
)

func TestCreateDerivesArtifactPaths(t *testing.T) {
	out := t.TempDir()
	ws, err := workspace.Create(out, "Movie")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	defer ws.Destroy()

	tmp := filepath.Join(out, "temp")
	if ws.Dir() != tmp {
		t.Fatalf("Dir() = %q, want %q", ws.Dir(), tmp)
	}
	want := map[workspace.Artifact]string{
		workspace.ArtifactVideo:          "Movie_temp.hevc",
		workspace.ArtifactRPU:            "Movie_rpu.bin",
		workspace.ArtifactReencoded:      "Movie_reencoded.mkv",
		workspace.ArtifactReencodedVideo: "Movie_reencoded.hevc",
		workspace.ArtifactFinalVideo:     "Movie_final.hevc",
		workspace.ArtifactAudio:          "Movie_audio.aac",
	}
	for name, file := range want {
		if got := ws.Path(name); got != filepath.Join(tmp, file) {
			t.Fatalf("Path(%s) = %q, want %q", name, got, filepath.Join(tmp, file))
		}
	}
	if ws.Output() != filepath.Join(out, "Movie_ReDoVi.mkv") {
		t.Fatalf("Output() = %q", ws.Output())
	}
	if len(ws.Artifacts()) != len(want) {
		t.Fatalf("expected %d artifacts, got %d", len(want), len(ws.Artifacts()))
	}
}

func TestCreateIsIdempotentForExistingDirectory(t *testing.T) {
	out := t.TempDir()
	if err := os.MkdirAll(filepath.Join(out, "scratch"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	ws, err := workspace.Create(out, "Movie", workspace.WithDirName("scratch"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	ws.Destroy()
}

func TestDestroyRemovesDirectoryButNotOutput(t *testing.T) {
	out := t.TempDir()
	ws, err := workspace.Create(out, "Movie")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := os.WriteFile(ws.Path(workspace.ArtifactRPU), []byte("rpu"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if err := os.WriteFile(ws.Output(), []byte("mkv"), 0o644); err != nil {
		t.Fatalf("write output: %v", err)
	}

	ws.Destroy()
	ws.Destroy()

	if _, err := os.Stat(ws.Dir()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected workspace removed, stat err=%v", err)
	}
	if _, err := os.Stat(ws.Output()); err != nil {
		t.Fatalf("expected output to survive: %v", err)
	}
}

func TestCreateRejectsConcurrentOwner(t *testing.T) {
	out := t.TempDir()
	first, err := workspace.Create(out, "A")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	defer first.Destroy()

	_, err = workspace.Create(out, "B")
	if err == nil {
		t.Fatal("expected second workspace in the same directory to be refused")
	}
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io marker, got %v", err)
	}
}

func TestCreateFailsWhenDirectoryCannotBeMade(t *testing.T) {
	out := t.TempDir()
	blocker := filepath.Join(out, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	_, err := workspace.Create(blocker, "Movie")
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestCreateRefusesDirectoryWithForeignFiles(t *testing.T) {
	out := t.TempDir()
	tmp := filepath.Join(out, "temp")
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	foreign := []string{"movie.mkv", "family_photos.jpg"}
	for _, name := range foreign {
		if err := os.WriteFile(filepath.Join(tmp, name), []byte("keep"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	ws, err := workspace.Create(out, "movie")
	if err == nil {
		ws.Destroy()
		t.Fatal("expected a directory holding user files to be refused")
	}
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io marker, got %v", err)
	}
	for _, name := range foreign {
		if _, err := os.Stat(filepath.Join(tmp, name)); err != nil {
			t.Fatalf("expected %s to survive: %v", name, err)
		}
	}
}

func TestCreateRefusesDirectoryWithSubdirectory(t *testing.T) {
	out := t.TempDir()
	if err := os.MkdirAll(filepath.Join(out, "temp", "old_rpu.bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := workspace.Create(out, "Movie"); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestCreateReusesDirectoryWithStaleArtifacts(t *testing.T) {
	out := t.TempDir()
	tmp := filepath.Join(out, "temp")
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stale := filepath.Join(tmp, "Other_rpu.bin")
	for _, path := range []string{stale, filepath.Join(tmp, workspace.LockName)} {
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	ws, err := workspace.Create(out, "Movie")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := os.WriteFile(ws.Path(workspace.ArtifactVideo), []byte("hevc"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	ws.Destroy()

	if _, err := os.Stat(ws.Path(workspace.ArtifactVideo)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected own artifact removed, stat err=%v", err)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Fatalf("expected another run's artifact to be left for cleanup: %v", err)
	}
}
