// Package transcription turns speech intervals into transcript segments.
//
// Service is the opaque speech-to-text capability; HTTPService talks to an
// OpenAI-compatible endpoint and the whisperx package runs a local model.
// Client wraps a Service with the policies every caller needs:
//
//   - a content-addressed Cache keyed by the SHA-256 of the PCM bytes and the
//     engine version, read before and written after every call
//   - deduplication of concurrent requests for the same audio
//   - a token-bucket rate limit and a per-attempt timeout
//   - bounded exponential backoff for Transient errors; Permanent errors fail fast
//
// Pipeline segments PCM with an audio.Segmenter, dispatches the intervals to a
// Client with bounded parallelism and reassembles the results by index. A
// failed segment is recorded and does not stop the others; cancellation does.
package transcription
