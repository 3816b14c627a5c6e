// Package progress maps per-stage completion onto a single monotonic
// percentage for one file's run and fans it out to caller-supplied sinks.
package progress
