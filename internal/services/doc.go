// Package services defines shared utilities consumed by the pipeline stages and
// the external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and source paths for
//     logging.
//   - Structured error markers plus the Wrap helper and ToolError type, so the
//     orchestrator, batch runner, and CLI can tell a missing RPU from a tool
//     crash or a user abort.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
