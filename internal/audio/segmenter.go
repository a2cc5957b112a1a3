package audio

import (
	"errors"
	"fmt"
	"time"

	"tandem/internal/config"
)

const (
	DefaultFrameDuration = 30 * time.Millisecond
	DefaultPadding       = 200 * time.Millisecond
	DefaultMinSpeech     = 250 * time.Millisecond
	DefaultMergeGap      = 300 * time.Millisecond
	DefaultThresholdDB   = -40.0
)

// SpeechInterval is a padded span of detected speech. Confidence is the share
// of speech frames inside the unpadded span.
type SpeechInterval struct {
	Index      int
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// Duration returns End - Start.
func (s SpeechInterval) Duration() time.Duration {
	return s.End - s.Start
}

// Segmenter splits PCM into speech intervals. A zero FrameDuration means 30ms
// and a nil Classifier means energy detection at -40 dBFS. MaxSegment of zero
// leaves long intervals whole.
type Segmenter struct {
	Classifier    Classifier
	FrameDuration time.Duration
	Padding       time.Duration
	MinSpeech     time.Duration
	MergeGap      time.Duration
	MaxSegment    time.Duration
}

// DefaultSegmenter returns a Segmenter with the package defaults.
func DefaultSegmenter() *Segmenter {
	return &Segmenter{
		Classifier:    EnergyClassifier{ThresholdDB: DefaultThresholdDB},
		FrameDuration: DefaultFrameDuration,
		Padding:       DefaultPadding,
		MinSpeech:     DefaultMinSpeech,
		MergeGap:      DefaultMergeGap,
	}
}

// NewSegmenter builds a Segmenter from the [segmenter] configuration section.
func NewSegmenter(cfg config.Segmenter) (*Segmenter, error) {
	classifier, err := NewClassifier(cfg.Method, cfg.EnergyThreshold, cfg.WebRTCMode)
	if err != nil {
		return nil, err
	}
	return &Segmenter{
		Classifier:    classifier,
		FrameDuration: time.Duration(cfg.FrameMs) * time.Millisecond,
		Padding:       time.Duration(cfg.PaddingMs) * time.Millisecond,
		MinSpeech:     time.Duration(cfg.MinSpeechMs) * time.Millisecond,
		MergeGap:      time.Duration(cfg.MergeGapMs) * time.Millisecond,
		MaxSegment:    time.Duration(cfg.MaxSegmentMs) * time.Millisecond,
	}, nil
}

// span is a half-open frame range [start, end).
type span struct {
	start, end int
}

// paddedSpan is a speech interval after padding, with the frame range it grew from.
type paddedSpan struct {
	start, end time.Duration
	raw        span
}

// Segment classifies samples (mono s16le) and returns speech intervals ordered
// by start time with indexes from 0.
func (s *Segmenter) Segment(samples []byte, sampleRate int) ([]SpeechInterval, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	frameDur := s.FrameDuration
	if frameDur <= 0 {
		frameDur = DefaultFrameDuration
	}
	samplesPerFrame := int(int64(sampleRate) * int64(frameDur) / int64(time.Second))
	if samplesPerFrame <= 0 {
		return nil, errors.New("frame duration shorter than one sample")
	}
	classifier := s.Classifier
	if classifier == nil {
		classifier = EnergyClassifier{ThresholdDB: DefaultThresholdDB}
	}
	if r, ok := classifier.(resetter); ok {
		if err := r.Reset(); err != nil {
			return nil, err
		}
	}

	flags, err := classifyFrames(classifier, samples, sampleRate, samplesPerFrame*bytesPerSample)
	if err != nil {
		return nil, err
	}
	if len(flags) == 0 {
		return nil, nil
	}

	toFrames := func(d time.Duration) int {
		return int((d + frameDur - 1) / frameDur)
	}
	runs := speechRuns(flags)
	mergeGap := toFrames(s.MergeGap)
	runs = mergeRuns(runs, mergeGap)

	minSpeech := toFrames(s.MinSpeech)
	total := PCMDuration(samples, sampleRate)
	var spans []paddedSpan
	for _, r := range runs {
		if r.end-r.start < minSpeech {
			continue
		}
		start := max(0, time.Duration(r.start)*frameDur-s.Padding)
		end := min(total, time.Duration(r.end)*frameDur+s.Padding)
		if n := len(spans); n > 0 && start <= spans[n-1].end {
			spans[n-1].end = max(spans[n-1].end, end)
			spans[n-1].raw.end = r.end
			continue
		}
		spans = append(spans, paddedSpan{start: start, end: end, raw: r})
	}

	var intervals []SpeechInterval
	for _, p := range spans {
		confidence := speechShare(flags, p.raw.start, p.raw.end)
		for _, piece := range splitLong(p.start, p.end, s.MaxSegment) {
			intervals = append(intervals, SpeechInterval{
				Index:      len(intervals),
				Start:      piece[0],
				End:        piece[1],
				Confidence: confidence,
			})
		}
	}
	return intervals, nil
}

func classifyFrames(classifier Classifier, samples []byte, sampleRate, frameBytes int) ([]bool, error) {
	flags := make([]bool, 0, len(samples)/frameBytes)
	for offset := 0; offset+frameBytes <= len(samples); offset += frameBytes {
		isSpeech, err := classifier.Process(sampleRate, samples[offset:offset+frameBytes])
		if err != nil {
			return nil, fmt.Errorf("classify frame %d: %w", len(flags), err)
		}
		flags = append(flags, isSpeech)
	}
	return flags, nil
}

func speechRuns(flags []bool) []span {
	var runs []span
	start := -1
	for i, speech := range flags {
		switch {
		case speech && start < 0:
			start = i
		case !speech && start >= 0:
			runs = append(runs, span{start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, span{start: start, end: len(flags)})
	}
	return runs
}

// mergeRuns joins runs separated by fewer than gap silent frames.
func mergeRuns(runs []span, gap int) []span {
	if len(runs) == 0 {
		return runs
	}
	out := []span{runs[0]}
	for _, next := range runs[1:] {
		last := &out[len(out)-1]
		if next.start-last.end < gap {
			last.end = next.end
			continue
		}
		out = append(out, next)
	}
	return out
}

func speechShare(flags []bool, start, end int) float64 {
	if end <= start {
		return 0
	}
	speech := 0
	for _, f := range flags[start:end] {
		if f {
			speech++
		}
	}
	return float64(speech) / float64(end-start)
}

// splitLong cuts [start, end) into equal pieces no longer than limit.
func splitLong(start, end, limit time.Duration) [][2]time.Duration {
	length := end - start
	if limit <= 0 || length <= limit {
		return [][2]time.Duration{{start, end}}
	}
	pieces := int((length + limit - 1) / limit)
	step := length / time.Duration(pieces)
	out := make([][2]time.Duration, 0, pieces)
	for i := 0; i < pieces; i++ {
		pieceStart := start + time.Duration(i)*step
		pieceEnd := pieceStart + step
		if i == pieces-1 {
			pieceEnd = end
		}
		out = append(out, [2]time.Duration{pieceStart, pieceEnd})
	}
	return out
}
