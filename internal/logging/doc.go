// Package logging assembles structured slog loggers and formatting helpers used
// across redovi.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so stage code tags log lines with the run
// ID, source file, and stage automatically. NewNop provides a silent logger for
// tests.
package logging
