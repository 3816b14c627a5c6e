package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeJob()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if textfile := strings.TrimSpace(c.Metrics.Textfile); textfile != "" {
		if c.Metrics.Textfile, err = expandPath(textfile); err != nil {
			return fmt.Errorf("metrics.textfile: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = toolOrDefault(c.Tools.FFmpeg, "REDOVI_FFMPEG", defaultFFmpeg)
	c.Tools.DoviTool = toolOrDefault(c.Tools.DoviTool, "REDOVI_DOVI_TOOL", defaultDoviTool)
	c.Tools.MKVMerge = toolOrDefault(c.Tools.MKVMerge, "REDOVI_MKVMERGE", defaultMKVMerge)
}

func toolOrDefault(value, envKey, fallback string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(env) != "" {
		return strings.TrimSpace(env)
	}
	return fallback
}

func (c *Config) normalizeJob() {
	c.Encoding.Backend = strings.ToLower(strings.TrimSpace(c.Encoding.Backend))
	c.Encoding.Preset = strings.ToLower(strings.TrimSpace(c.Encoding.Preset))
	c.Audio.Mode = strings.ToLower(strings.TrimSpace(c.Audio.Mode))
	c.Audio.Bitrate = strings.ToLower(strings.TrimSpace(c.Audio.Bitrate))
	c.Audio.Retention = strings.ToLower(strings.TrimSpace(c.Audio.Retention))
	c.Workspace.DirName = strings.TrimSpace(c.Workspace.DirName)
	if c.Workspace.DirName == "" {
		c.Workspace.DirName = defaultWorkspaceDirName
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
