// Package config loads, normalizes, and validates tandem configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the TANDEM_TRANSCRIPTION_API_KEY
// environment fallback. The Config type centralizes the alignment, segmenter
// and transcription knobs the CLI needs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
