//go:build cgo

package audio

import (
	"fmt"
	"sync"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

const webrtcAvailable = true

// WebRTCClassifier labels frames with the WebRTC voice activity detector.
// Frames must be 10, 20 or 30 ms at 8, 16, 32 or 48 kHz.
type WebRTCClassifier struct {
	mu   sync.Mutex
	mode int
	vad  *webrtcvad.VAD
}

// NewWebRTCClassifier returns a detector at aggressiveness mode, 0 (quality)
// to 3 (aggressive).
func NewWebRTCClassifier(mode int) (*WebRTCClassifier, error) {
	vad, err := newVAD(mode)
	if err != nil {
		return nil, err
	}
	return &WebRTCClassifier{mode: mode, vad: vad}, nil
}

func newVAD(mode int) (*webrtcvad.VAD, error) {
	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("create webrtc vad: %w", err)
	}
	if err := vad.SetMode(mode); err != nil {
		return nil, fmt.Errorf("set webrtc vad mode %d: %w", mode, err)
	}
	return vad, nil
}

// Process implements Classifier.
func (w *WebRTCClassifier) Process(sampleRate int, frame []byte) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.vad.Process(sampleRate, frame)
}

// Reset discards the detector's adaptive state so each Segment call starts
// from the same point.
func (w *WebRTCClassifier) Reset() error {
	vad, err := newVAD(w.mode)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.vad = vad
	w.mu.Unlock()
	return nil
}
