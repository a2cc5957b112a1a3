//go:build cgo

package audio

import (
	"encoding/binary"
	"math"
	"reflect"
	"testing"
	"time"
)

// voicedPCM renders a crude voiced signal: a 120 Hz pulse train shaped by two
// formant-like partials, amplitude-modulated at syllable rate.
func voicedPCM(duration time.Duration) []byte {
	n := int(int64(testRate) * int64(duration) / int64(time.Second))
	pcm := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		tt := float64(i) / testRate
		envelope := 0.55 + 0.45*math.Sin(2*math.Pi*4*tt)
		v := 0.0
		for h := 1; h <= 20; h++ {
			f := 120 * float64(h)
			gain := math.Exp(-math.Pow((f-700)/300, 2)) + 0.6*math.Exp(-math.Pow((f-1200)/400, 2)) + 0.05
			v += gain * math.Sin(2*math.Pi*f*tt)
		}
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(int16(3000*envelope*v)))
	}
	return pcm
}

func TestWebRTCClassifierRejectsSilence(t *testing.T) {
	c, err := NewWebRTCClassifier(3)
	if err != nil {
		t.Fatalf("NewWebRTCClassifier: %v", err)
	}
	silence := buildPCM([]bool{false})
	if speech, err := c.Process(testRate, silence); err != nil || speech {
		t.Fatalf("silence classified as %v, %v", speech, err)
	}
}

func TestWebRTCSegmentIsDeterministic(t *testing.T) {
	c, err := NewWebRTCClassifier(1)
	if err != nil {
		t.Fatalf("NewWebRTCClassifier: %v", err)
	}
	silence := make([]byte, testRate) // 500ms
	var pcm []byte
	pcm = append(pcm, silence...)
	pcm = append(pcm, voicedPCM(1500*time.Millisecond)...)
	pcm = append(pcm, silence...)
	pcm = append(pcm, silence...)

	segmenter := DefaultSegmenter()
	segmenter.Classifier = c
	first, err := segmenter.Segment(pcm, testRate)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	second, err := segmenter.Segment(pcm, testRate)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("segments differ between runs:\n%+v\n%+v", first, second)
	}
	for _, iv := range first {
		if iv.End > PCMDuration(pcm, testRate) || iv.Start < 0 || iv.End <= iv.Start {
			t.Fatalf("interval out of range: %+v", iv)
		}
	}

	empty, err := segmenter.Segment(make([]byte, 2*testRate), testRate)
	if err != nil || len(empty) != 0 {
		t.Fatalf("silence produced %+v, %v", empty, err)
	}
}
