package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// SRTCue describes one cue for WriteSRT.
type SRTCue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// WriteSRT renders cues as an SRT file under dir and returns its path.
func WriteSRT(t testing.TB, dir, name string, cues ...SRTCue) string {
	t.Helper()

	var b strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTime(cue.Start), srtTime(cue.End), cue.Text)
	}
	return WriteFile(t, filepath.Join(dir, name), []byte(b.String()))
}

func srtTime(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
