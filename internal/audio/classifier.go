package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Classifier decides whether one frame of s16le mono PCM contains speech.
type Classifier interface {
	Process(sampleRate int, frame []byte) (bool, error)
}

// EnergyClassifier flags frames whose RMS level reaches ThresholdDB (dBFS).
type EnergyClassifier struct {
	ThresholdDB float64
}

// Process implements Classifier.
func (e EnergyClassifier) Process(_ int, frame []byte) (bool, error) {
	if len(frame)%2 != 0 {
		return false, errors.New("frame length is not a whole number of samples")
	}
	return FrameLevel(frame) >= e.ThresholdDB, nil
}

// FrameLevel returns the RMS level of a s16le frame in dBFS. Silence is -Inf.
func FrameLevel(frame []byte) float64 {
	samples := len(frame) / 2
	if samples == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for i := 0; i+1 < len(frame); i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(frame[i:])))
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(samples))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/32768)
}

// resetter is implemented by classifiers that carry state across frames.
type resetter interface {
	Reset() error
}

// NewClassifier returns the classifier named by method. "webrtc" requires a
// cgo build; "auto" uses it when compiled in and falls back to energy.
func NewClassifier(method string, thresholdDB float64, webrtcMode int) (Classifier, error) {
	energy := EnergyClassifier{ThresholdDB: thresholdDB}
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "energy":
		return energy, nil
	case "webrtc":
		c, err := NewWebRTCClassifier(webrtcMode)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "", "auto":
		if webrtcAvailable {
			if c, err := NewWebRTCClassifier(webrtcMode); err == nil {
				return c, nil
			}
		}
		return energy, nil
	default:
		return nil, fmt.Errorf("unknown voice activity method %q", method)
	}
}
