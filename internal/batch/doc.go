// Package batch discovers container files in a directory and runs the
// pipeline over them one at a time, isolating per-file failures.
package batch
