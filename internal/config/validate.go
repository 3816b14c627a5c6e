package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateJobDefaults(); err != nil {
		return err
	}
	if err := c.validateWorkspace(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTools() error {
	if c.Tools.TerminateGraceSeconds < 0 {
		return errors.New("tools.terminate_grace_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateJobDefaults() error {
	tmpl, err := c.JobTemplate()
	if err != nil {
		return err
	}
	// Validate needs a source and output; the template has neither yet.
	tmpl.Source = "placeholder.mkv"
	tmpl.OutputDir = "."
	if err := tmpl.Validate(); err != nil {
		return fmt.Errorf("encoding/audio defaults: %w", err)
	}
	return nil
}

func (c *Config) validateWorkspace() error {
	name := c.Workspace.DirName
	if name == "." || name == ".." || strings.ContainsRune(name, filepath.Separator) {
		return errors.New("workspace.dir_name must be a plain directory name")
	}
	if c.Workspace.StaleHours < 1 {
		return errors.New("workspace.stale_hours must be positive")
	}
	if c.Workspace.MinFreeGiB < 0 {
		return errors.New("workspace.min_free_gib must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
