// Package tools wraps the three external programs the pipeline delegates to:
// ffmpeg (demux, re-encode, audio), dovi_tool (RPU extract and inject) and
// mkvmerge (final mux).
//
// Each Client method runs one invocation through an Executor, streams its
// output line by line, and turns a non-zero exit into a services.ToolError
// carrying the last diagnostic lines. Cancelling the context terminates the
// running process group with SIGTERM and surfaces services.ErrAborted.
package tools
