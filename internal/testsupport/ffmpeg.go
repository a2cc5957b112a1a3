package testsupport

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// StubFFmpeg installs an ffmpeg on PATH that ignores its arguments and writes
// pcm to stdout, standing in for a decode of any media file.
func StubFFmpeg(t *testing.T, pcm []byte) string {
	t.Helper()

	dir := t.TempDir()
	pcmPath := WriteFile(t, filepath.Join(dir, "audio.pcm"), pcm)
	script := "#!/bin/sh\ncat '" + pcmPath + "'\n"
	binPath := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(binPath, []byte(script), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return binPath
}

// TonePCM builds mono s16le audio from alternating blocks of silence and a
// sine tone. Even-indexed blocks are silent; durations are in milliseconds.
func TonePCM(sampleRate int, blocks ...int) []byte {
	var pcm []byte
	for i, ms := range blocks {
		samples := sampleRate * ms / 1000
		freq := 220.0 * float64(i+1)
		for n := 0; n < samples; n++ {
			var v int16
			if i%2 == 1 {
				v = int16(9000 * math.Sin(2*math.Pi*freq*float64(n)/float64(sampleRate)))
			}
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
		}
	}
	return pcm
}
