// Package job defines the per-file transcode request and the fixed option sets
// it draws from: encoder backends with their presets, audio channel layouts,
// aac bitrates, and the source-audio retention policy.
package job
