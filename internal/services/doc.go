// Package services defines shared utilities consumed by the transcription
// pipeline, the alignment driver, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, segment indexes, and
//     source identities for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent exit codes (bad input vs flaky infrastructure).
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
