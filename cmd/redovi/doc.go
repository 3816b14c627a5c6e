// Package main hosts the redovi CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, builds the tool client and
// pipeline, and drives either a single file or a folder batch. Progress is
// rendered as a terminal bar when stdout is interactive and as sampled log
// lines otherwise. Supporting commands cover dependency checks, run history,
// stale workspace cleanup and configuration scaffolding.
//
// Keep this package lean: behavior lives in the internal packages and is only
// wired together here.
package main
