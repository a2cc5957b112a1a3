package transcription

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// TranscriptSegment is the transcript of one speech interval. SourceHash is
// the hex SHA-256 of the exact PCM bytes that were transcribed.
type TranscriptSegment struct {
	Index      int
	Start      time.Duration
	End        time.Duration
	Text       string
	Language   string
	SourceHash string
}

// Result is what a Service returns for one audio clip.
type Result struct {
	Text     string
	Language string
}

// Service submits one clip of WAV audio for transcription. EngineVersion
// identifies the model so cached transcripts from another engine are not
// reused.
type Service interface {
	Submit(ctx context.Context, audio []byte, languageHint string) (Result, error)
	EngineVersion() string
}

// Request describes one interval to transcribe. Audio is mono s16le PCM.
type Request struct {
	Audio        []byte
	SampleRate   int
	LanguageHint string
	Index        int
	Start        time.Duration
	End          time.Duration
}

// HashAudio returns the hex SHA-256 of an audio payload. The client hashes the
// WAV it submits, so the sample rate is part of the key.
func HashAudio(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
