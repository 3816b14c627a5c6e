// Package pipeline runs the Dolby Vision re-encode state machine for a single
// source file.
//
// The Orchestrator validates the job request, creates the per-file workspace,
// and drives the external stages strictly in order: extract the HEVC stream,
// pull its RPU, re-encode the original container, extract the re-encoded
// stream, inject the RPU, optionally transcode audio, and remux. Every
// transition is preceded by a cancellation check and the workspace is always
// destroyed before Run returns. Observers receive stage and run notifications
// for logging, metrics and history.
package pipeline
