// Package workspace owns the scratch directory that holds one pipeline run's
// intermediate artifacts. A workspace is locked for the duration of the run
// and removed on every exit path; the finished file is written next to it in
// the output directory.
package workspace
