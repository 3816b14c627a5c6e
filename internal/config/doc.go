// Package config loads, normalizes, and validates redovi configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the tool
// binaries (REDOVI_FFMPEG, REDOVI_DOVI_TOOL, REDOVI_MKVMERGE). The Encoding and
// Audio sections double as the persisted job defaults the CLI starts from.
package config
