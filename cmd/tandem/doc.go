// Package main hosts the tandem CLI entrypoint and command graph.
//
// The Cobra-based command tree parses subtitle files, aligns two tracks,
// extracts and segments audio, drives the cached transcription pipeline and
// exposes cache maintenance and environment checks. It centralizes
// configuration resolution, run identifiers and structured logging setup so
// subcommands stay thin: the behavior lives in the internal packages.
package main
