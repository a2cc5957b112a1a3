//go:build !cgo

package audio

import "errors"

const webrtcAvailable = false

var errWebRTCUnavailable = errors.New("webrtc vad unavailable (cgo disabled)")

// WebRTCClassifier is unavailable without cgo.
type WebRTCClassifier struct{}

// NewWebRTCClassifier always fails without cgo.
func NewWebRTCClassifier(int) (*WebRTCClassifier, error) {
	return nil, errWebRTCUnavailable
}

func (w *WebRTCClassifier) Process(int, []byte) (bool, error) {
	return false, errWebRTCUnavailable
}

func (w *WebRTCClassifier) Reset() error {
	return errWebRTCUnavailable
}
