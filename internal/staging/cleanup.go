package staging

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"redovi/internal/logging"
	"redovi/internal/workspace"
)

// CleanStaleResult contains the outcome of a stale workspace cleanup.
type CleanStaleResult struct {
	Removed []string
	Skipped []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// DirInfo describes a workspace left on disk.
type DirInfo struct {
	Path    string
	ModTime time.Time
	Size    int64
	Locked  bool
}

// FindWorkspaces returns the workspaces named dirName directly under root and
// one level below it (root/*/dirName), which covers a batch output folder as
// well as a parent of several output folders.
func FindWorkspaces(root, dirName string) ([]DirInfo, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}
	if dirName = strings.TrimSpace(dirName); dirName == "" {
		dirName = workspace.DefaultDirName
	}

	candidates := []string{filepath.Join(root, dirName)}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() != dirName {
			candidates = append(candidates, filepath.Join(root, entry.Name(), dirName))
		}
	}

	var dirs []DirInfo
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}
		if !looksLikeWorkspace(path) {
			continue
		}
		modTime, size := scanDir(path, info.ModTime())
		dirs = append(dirs, DirInfo{
			Path:    path,
			ModTime: modTime,
			Size:    size,
			Locked:  isLocked(path),
		})
	}
	return dirs, nil
}

// CleanStale removes workspaces under root whose newest entry is older than
// maxAge. Workspaces locked by a running redovi process are skipped.
func CleanStale(ctx context.Context, root, dirName string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	dirs, err := FindWorkspaces(root, dirName)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		if dir.Locked {
			result.Skipped = append(result.Skipped, dir.Path)
			logger.Info("workspace in use; skipping",
				logging.String("path", dir.Path),
				logging.String(logging.FieldEventType, "workspace_cleanup_skipped"),
			)
			continue
		}
		if !dir.ModTime.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale workspace", "workspace_cleanup_failed",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check output directory permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dir.Path)
		logger.Info("removed stale workspace",
			logging.String("path", dir.Path),
			logging.Duration("age", time.Since(dir.ModTime)),
			logging.Int64("bytes", dir.Size),
			logging.String(logging.FieldEventType, "workspace_cleanup"),
		)
	}
	return result
}

// looksLikeWorkspace accepts a directory holding the lock file or only
// pipeline artifacts, so an unrelated folder that happens to share the name
// is left alone.
func looksLikeWorkspace(path string) bool {
	if _, err := os.Stat(filepath.Join(path, workspace.LockName)); err == nil {
		return true
	}
	entries, err := os.ReadDir(path)
	if err != nil || len(entries) == 0 {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() || !workspace.IsArtifactName(entry.Name()) {
			return false
		}
	}
	return true
}

func isLocked(path string) bool {
	lockPath := filepath.Join(path, workspace.LockName)
	if _, err := os.Stat(lockPath); errors.Is(err, os.ErrNotExist) {
		return false
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return true
	}
	if !locked {
		return true
	}
	_ = lock.Unlock()
	return false
}

// scanDir returns the newest modification time and total size under path.
func scanDir(path string, modTime time.Time) (time.Time, int64) {
	var size int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.ModTime().After(modTime) {
			modTime = info.ModTime()
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return modTime, size
}
