package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"

	"redovi/internal/logging"
	"redovi/internal/services"
)

// LockName is the advisory lock file held inside a live workspace.
const LockName = ".redovi.lock"

// DefaultDirName is the scratch directory created under the output directory.
const DefaultDirName = "temp"

// Artifact names the intermediate files of one pipeline run.
type Artifact string

const (
	ArtifactVideo          Artifact = "video"
	ArtifactRPU            Artifact = "rpu"
	ArtifactReencoded      Artifact = "reencoded"
	ArtifactReencodedVideo Artifact = "reencoded_video"
	ArtifactFinalVideo     Artifact = "final_video"
	ArtifactAudio          Artifact = "audio"
)

var artifactSuffixes = map[Artifact]string{
	ArtifactVideo:          "_temp.hevc",
	ArtifactRPU:            "_rpu.bin",
	ArtifactReencoded:      "_reencoded.mkv",
	ArtifactReencodedVideo: "_reencoded.hevc",
	ArtifactFinalVideo:     "_final.hevc",
	ArtifactAudio:          "_audio.aac",
}

// IsArtifactName reports whether name carries one of the artifact suffixes.
func IsArtifactName(name string) bool {
	for _, suffix := range artifactSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// OutputSuffix is appended to the source base name for the finished file.
const OutputSuffix = "_ReDoVi.mkv"

// Option configures workspace creation.
type Option func(*options)

type options struct {
	dirName string
	logger  *slog.Logger
}

// WithDirName overrides the scratch directory name.
func WithDirName(name string) Option {
	return func(o *options) {
		if name = strings.TrimSpace(name); name != "" {
			o.dirName = name
		}
	}
}

// WithLogger attaches a logger used for cleanup warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Workspace owns the scratch directory for a single file's run.
type Workspace struct {
	dir       string
	output    string
	artifacts map[Artifact]string
	lock      *flock.Flock
	logger    *slog.Logger
	destroyed bool
}

// Create makes the scratch directory under outputDir (if absent), takes its
// exclusive lock, and derives every artifact path from baseName. An existing
// directory is only reused when it holds nothing but a lock file and
// artifacts.
func Create(outputDir, baseName string, opts ...Option) (*Workspace, error) {
	cfg := options{dirName: DefaultDirName, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	baseName = strings.TrimSpace(baseName)
	if baseName == "" {
		return nil, services.Wrap(services.ErrIO, "workspace", "create", "base name required", nil)
	}

	dir := filepath.Join(outputDir, cfg.dirName)
	if err := checkForeignEntries(dir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "workspace", "create", fmt.Sprintf("create %s", dir), err)
	}

	lock := flock.New(filepath.Join(dir, LockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "workspace", "lock", dir, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrIO, "workspace", "lock",
			fmt.Sprintf("%s is in use by another redovi process", dir), nil)
	}

	artifacts := make(map[Artifact]string, len(artifactSuffixes))
	for name, suffix := range artifactSuffixes {
		artifacts[name] = filepath.Join(dir, baseName+suffix)
	}

	return &Workspace{
		dir:       dir,
		output:    filepath.Join(outputDir, baseName+OutputSuffix),
		artifacts: artifacts,
		lock:      lock,
		logger:    cfg.logger,
	}, nil
}

// Dir returns the scratch directory.
func (w *Workspace) Dir() string { return w.dir }

// Output returns the final container path; it lives outside the workspace.
func (w *Workspace) Output() string { return w.output }

// Path returns the absolute path of an intermediate artifact.
func (w *Workspace) Path(name Artifact) string { return w.artifacts[name] }

// Artifacts returns a copy of the artifact map.
func (w *Workspace) Artifacts() map[Artifact]string {
	out := make(map[Artifact]string, len(w.artifacts))
	for k, v := range w.artifacts {
		out[k] = v
	}
	return out
}

// Destroy removes this run's artifacts and lock file, then the scratch
// directory if nothing else is left in it. Failures are logged and swallowed
// so cleanup never masks the run's own outcome. Calling Destroy more than once
// is a no-op.
func (w *Workspace) Destroy() {
	if w == nil || w.destroyed {
		return
	}
	w.destroyed = true

	for _, path := range w.artifacts {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			w.warnCleanup(path, err)
		}
	}
	if err := os.Remove(filepath.Join(w.dir, LockName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Debug("workspace lock file not removed", logging.String("path", w.dir), logging.Error(err))
	}
	if err := w.lock.Unlock(); err != nil {
		w.logger.Debug("workspace unlock failed", logging.String("path", w.dir), logging.Error(err))
	}

	// Leftovers from an interrupted run of another file keep the directory
	// alive; redovi cleanup reclaims it.
	if err := os.Remove(w.dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		if errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EEXIST) {
			w.logger.Info("workspace kept; other files remain",
				logging.String("path", w.dir),
				logging.String(logging.FieldEventType, "workspace_kept"),
			)
			return
		}
		w.warnCleanup(w.dir, err)
	}
}

func (w *Workspace) warnCleanup(path string, err error) {
	logging.WarnWithContext(w.logger, "failed to remove workspace", "workspace_cleanup_failed",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "remove the directory manually or run redovi cleanup"),
		logging.String(logging.FieldImpact, "disk space not reclaimed"),
	)
}

// checkForeignEntries refuses an existing scratch directory that holds
// anything other than a lock file or pipeline artifacts.
func checkForeignEntries(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Absent or not a directory; MkdirAll creates or reports it.
		return nil
	}
	for _, entry := range entries {
		name := entry.Name()
		if name == LockName {
			continue
		}
		if entry.Type().IsRegular() && IsArtifactName(name) {
			continue
		}
		return services.Wrap(services.ErrIO, "workspace", "create",
			fmt.Sprintf("%s already contains %q; choose another output directory or workspace name", dir, name), nil)
	}
	return nil
}
