package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"tandem/internal/config"
)

const testRate = 16000

// buildPCM renders a tone for each true entry and silence for each false
// entry, one 30ms frame per entry.
func buildPCM(pattern []bool) []byte {
	frameSamples := testRate * 30 / 1000
	pcm := make([]byte, 0, len(pattern)*frameSamples*2)
	for _, speech := range pattern {
		for i := 0; i < frameSamples; i++ {
			var v int16
			if speech {
				v = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/testRate))
			}
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
		}
	}
	return pcm
}

func frames(pattern string) []bool {
	out := make([]bool, len(pattern))
	for i, c := range pattern {
		out[i] = c == '#'
	}
	return out
}

func TestEnergyClassifier(t *testing.T) {
	c := EnergyClassifier{ThresholdDB: -40}
	loud := buildPCM([]bool{true})
	quiet := buildPCM([]bool{false})
	if ok, err := c.Process(testRate, loud); err != nil || !ok {
		t.Fatalf("expected tone to be speech, got %v %v", ok, err)
	}
	if ok, err := c.Process(testRate, quiet); err != nil || ok {
		t.Fatalf("expected silence, got %v %v", ok, err)
	}
	if _, err := c.Process(testRate, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected odd-length frame to fail")
	}
	if !math.IsInf(FrameLevel(quiet), -1) {
		t.Fatalf("silence level = %v", FrameLevel(quiet))
	}
}

func TestNewClassifier(t *testing.T) {
	if c, err := NewClassifier("Energy", -40, 2); err != nil || c != (EnergyClassifier{ThresholdDB: -40}) {
		t.Fatalf("NewClassifier(energy) = %#v, %v", c, err)
	}
	for _, method := range []string{"", "auto"} {
		c, err := NewClassifier(method, -40, 2)
		if err != nil {
			t.Fatalf("NewClassifier(%q): %v", method, err)
		}
		_, isWebRTC := c.(*WebRTCClassifier)
		if isWebRTC != webrtcAvailable {
			t.Fatalf("NewClassifier(%q) = %T with webrtc available=%v", method, c, webrtcAvailable)
		}
	}
	if _, err := NewClassifier("webrtc", -40, 2); (err == nil) != webrtcAvailable {
		t.Fatalf("NewClassifier(webrtc) error = %v with webrtc available=%v", err, webrtcAvailable)
	}
	if _, err := NewClassifier("neural", -40, 2); err == nil {
		t.Fatal("expected unknown method to fail")
	}
}

func TestSegmentPadsAndMerges(t *testing.T) {
	// 10 silent, 20 speech, 5 silent (150ms, bridged), 10 speech, 30 silent,
	// 3 speech (90ms, dropped), 20 silent.
	pattern := frames(strings.Repeat(".", 10) + strings.Repeat("#", 20) + strings.Repeat(".", 5) +
		strings.Repeat("#", 10) + strings.Repeat(".", 30) + "###" + strings.Repeat(".", 20))
	pcm := buildPCM(pattern)

	got, err := DefaultSegmenter().Segment(pcm, testRate)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 interval, got %#v", got)
	}
	iv := got[0]
	if iv.Start != 300*time.Millisecond-DefaultPadding {
		t.Fatalf("start = %v", iv.Start)
	}
	if iv.End != 1350*time.Millisecond+DefaultPadding {
		t.Fatalf("end = %v", iv.End)
	}
	if want := 30.0 / 35.0; math.Abs(iv.Confidence-want) > 1e-9 {
		t.Fatalf("confidence = %v, want %v", iv.Confidence, want)
	}
}

func TestSegmentClampsAndMergesPaddedNeighbours(t *testing.T) {
	// Speech at the very start and end; the middle gap of 12 frames (360ms) is
	// not bridged but the 200ms padding on both sides makes them overlap.
	pattern := frames(strings.Repeat("#", 10) + strings.Repeat(".", 12) + strings.Repeat("#", 10))
	pcm := buildPCM(pattern)
	got, err := DefaultSegmenter().Segment(pcm, testRate)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected merged interval, got %#v", got)
	}
	if got[0].Start != 0 || got[0].End != PCMDuration(pcm, testRate) {
		t.Fatalf("expected clamped bounds, got %v-%v", got[0].Start, got[0].End)
	}
}

func TestSegmentSeparatesDistantSpeech(t *testing.T) {
	pattern := frames(strings.Repeat("#", 10) + strings.Repeat(".", 40) + strings.Repeat("#", 10))
	got, err := DefaultSegmenter().Segment(buildPCM(pattern), testRate)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(got) != 2 || got[0].Index != 0 || got[1].Index != 1 {
		t.Fatalf("expected two indexed intervals, got %#v", got)
	}
	if got[0].End > got[1].Start {
		t.Fatalf("intervals overlap: %#v", got)
	}
}

func TestSegmentIsDeterministic(t *testing.T) {
	pattern := frames("..####....######........##########...#.")
	pcm := buildPCM(pattern)
	seg := DefaultSegmenter()
	first, err := seg.Segment(pcm, testRate)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := seg.Segment(pcm, testRate)
		if err != nil {
			t.Fatalf("Segment: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %#v vs %#v", i, first, again)
		}
	}
}

func TestSegmentSplitsLongIntervals(t *testing.T) {
	seg := DefaultSegmenter()
	seg.Padding = 0
	seg.MaxSegment = time.Second
	pcm := buildPCM(frames(strings.Repeat("#", 100))) // 3s
	got, err := seg.Segment(pcm, testRate)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 pieces, got %#v", got)
	}
	if got[0].Start != 0 || got[2].End != 3*time.Second || got[0].End != got[1].Start {
		t.Fatalf("pieces not contiguous: %#v", got)
	}
}

func TestSegmentSilenceAndErrors(t *testing.T) {
	seg := DefaultSegmenter()
	got, err := seg.Segment(buildPCM(frames("..........")), testRate)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no intervals, got %#v %v", got, err)
	}
	if _, err := seg.Segment(nil, 0); err == nil {
		t.Fatal("expected invalid sample rate error")
	}
	seg.Classifier = failingClassifier{}
	if _, err := seg.Segment(buildPCM(frames("#")), testRate); err == nil {
		t.Fatal("expected classifier error to surface")
	}
}

type failingClassifier struct{}

func (failingClassifier) Process(int, []byte) (bool, error) { return false, errors.New("boom") }

func TestNewSegmenterFromConfig(t *testing.T) {
	cfg := config.Default()
	seg, err := NewSegmenter(cfg.Segmenter)
	if err != nil {
		t.Fatalf("NewSegmenter: %v", err)
	}
	if seg.FrameDuration != DefaultFrameDuration || seg.Padding != DefaultPadding || seg.MaxSegment != 30*time.Second {
		t.Fatalf("unexpected segmenter: %+v", seg)
	}
}

func TestSliceIntervalAlignsToSamples(t *testing.T) {
	pcm := make([]byte, testRate*2) // 1s
	for i := range pcm {
		pcm[i] = byte(i)
	}
	slice := SliceInterval(pcm, testRate, SpeechInterval{Start: 250 * time.Millisecond, End: 500 * time.Millisecond})
	if len(slice) != testRate/4*2 {
		t.Fatalf("slice length = %d", len(slice))
	}
	if slice[0] != pcm[testRate/4*2] {
		t.Fatal("slice does not start on the expected sample")
	}
	slice[0]++
	if slice[0] == pcm[testRate/4*2] {
		t.Fatal("slice shares memory with input")
	}
	if tail := SliceInterval(pcm, testRate, SpeechInterval{Start: 900 * time.Millisecond, End: 5 * time.Second}); len(tail) != testRate/10*2 {
		t.Fatalf("clamped tail length = %d", len(tail))
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := []byte{1, 0, 2, 0}
	wav := EncodeWAV(pcm, testRate)
	if len(wav) != 48 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatalf("bad header: %v", wav[:44])
	}
	if binary.LittleEndian.Uint32(wav[24:]) != testRate || binary.LittleEndian.Uint32(wav[40:]) != 4 {
		t.Fatal("sample rate or data size mismatch")
	}
}

func TestExtractPCMBuildsArgsAndClassifiesFailures(t *testing.T) {
	orig := runCommand
	t.Cleanup(func() { runCommand = orig })

	var gotArgs []string
	runCommand = func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte{0, 0}, nil
	}
	out, err := ExtractPCM(context.Background(), "", "movie.mkv", 2, testRate)
	if err != nil || len(out) != 2 {
		t.Fatalf("ExtractPCM: %v %v", out, err)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"ffmpeg ", "-i movie.mkv", "-map 0:2", "-ar 16000", "-f s16le"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}

	runCommand = func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1: Stream specifier ':2' matches no streams")
	}
	_, err = ExtractPCM(context.Background(), "ffmpeg", "movie.mkv", 2, testRate)
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) || extractErr.Reason != "stream_missing" {
		t.Fatalf("expected stream_missing, got %v", err)
	}
}
