// Package whisperx runs a local WhisperX model as a transcription.Service.
//
// Each Submit writes the clip to a scratch WAV file, invokes
// `uvx whisperx` on it and reads the JSON transcript back. The command runner
// is injectable so tests never start Python. Failures where WhisperX rejects
// the input are Permanent; everything else (model download hiccups, CUDA
// out-of-memory, killed processes) is Transient and left to the client's
// retry policy.
package whisperx
