package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"redovi/internal/job"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directories used for logs and persistent state.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Tools contains the external binaries the pipeline drives.
type Tools struct {
	FFmpeg   string `toml:"ffmpeg"`
	DoviTool string `toml:"dovi_tool"`
	MKVMerge string `toml:"mkvmerge"`
	// TerminateGraceSeconds bounds how long a cancelled tool may take to exit
	// after SIGTERM before it is killed.
	TerminateGraceSeconds int `toml:"terminate_grace_seconds"`
}

// Encoding contains the default video re-encode settings.
type Encoding struct {
	Quality int    `toml:"quality"`
	Backend string `toml:"backend"`
	Preset  string `toml:"preset"`
}

// Audio contains the default audio conversion settings.
type Audio struct {
	Mode      string `toml:"mode"`
	Bitrate   string `toml:"bitrate"`
	Retention string `toml:"retention"`
}

// Workspace contains scratch directory settings.
type Workspace struct {
	DirName    string `toml:"dir_name"`
	StaleHours int    `toml:"stale_hours"`
	MinFreeGiB int    `toml:"min_free_gib"`
}

// History controls the sqlite run history.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Metrics controls the Prometheus textfile export.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for redovi.
//
// The Encoding and Audio sections hold the persisted job defaults; command
// line flags override them per invocation.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Tools     Tools     `toml:"tools"`
	Encoding  Encoding  `toml:"encoding"`
	Audio     Audio     `toml:"audio"`
	Workspace Workspace `toml:"workspace"`
	History   History   `toml:"history"`
	Metrics   Metrics   `toml:"metrics"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("redovi.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobTemplate converts the persisted defaults into a request template. Source
// and output directory are filled per file.
func (c *Config) JobTemplate() (job.Request, error) {
	backend, err := job.ParseBackend(c.Encoding.Backend)
	if err != nil {
		return job.Request{}, fmt.Errorf("encoding.backend: %w", err)
	}
	mode, err := job.ParseAudioMode(c.Audio.Mode)
	if err != nil {
		return job.Request{}, fmt.Errorf("audio.mode: %w", err)
	}
	retention, err := job.ParseRetention(c.Audio.Retention)
	if err != nil {
		return job.Request{}, fmt.Errorf("audio.retention: %w", err)
	}
	return job.Request{
		Quality:      c.Encoding.Quality,
		Backend:      backend,
		Preset:       c.Encoding.Preset,
		AudioMode:    mode,
		AudioBitrate: c.Audio.Bitrate,
		Retention:    retention,
	}, nil
}

// TerminateGrace returns the SIGTERM grace period for cancelled tools.
func (c *Config) TerminateGrace() time.Duration {
	return time.Duration(c.Tools.TerminateGraceSeconds) * time.Second
}

// StaleAfter returns the age after which an unlocked workspace counts as abandoned.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Workspace.StaleHours) * time.Hour
}

// HistoryPath returns the sqlite database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
