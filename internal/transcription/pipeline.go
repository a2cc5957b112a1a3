package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tandem/internal/audio"
	"tandem/internal/logging"
	"tandem/internal/services"
	"tandem/internal/subtitle"
)

const defaultMaxConcurrent = 4

// Transcriber is the part of Client the Pipeline needs.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (TranscriptSegment, error)
}

// SegmentFailure records an interval whose transcription failed.
type SegmentFailure struct {
	Index int
	Start time.Duration
	End   time.Duration
	Err   error
}

func (f SegmentFailure) Error() string {
	return fmt.Sprintf("segment %d [%s-%s]: %v", f.Index, f.Start, f.End, f.Err)
}

func (f SegmentFailure) Unwrap() error { return f.Err }

// PipelineResult holds the ordered outcome of a run. Segments and Failures
// are both sorted by interval index.
type PipelineResult struct {
	Intervals []audio.SpeechInterval
	Segments  []TranscriptSegment
	Failures  []SegmentFailure
}

// Pipeline segments audio and transcribes the intervals in parallel.
type Pipeline struct {
	Segmenter     *audio.Segmenter
	Transcriber   Transcriber
	MaxConcurrent int
	Logger        *slog.Logger
}

// Run segments pcm (mono s16le at sampleRate) and transcribes every speech
// interval with at most MaxConcurrent requests in flight. Per-segment failures
// are collected in the result. Cancellation stops scheduling, waits for
// in-flight work and returns the partial result with the context error.
func (p *Pipeline) Run(ctx context.Context, pcm []byte, sampleRate int, languageHint string) (*PipelineResult, error) {
	if p == nil || p.Transcriber == nil {
		return nil, errors.New("transcription pipeline requires a transcriber")
	}
	segmenter := p.Segmenter
	if segmenter == nil {
		segmenter = audio.DefaultSegmenter()
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(p.Logger, "pipeline"))

	intervals, err := segmenter.Segment(pcm, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("segment audio: %w", err)
	}
	limit := p.MaxConcurrent
	if limit <= 0 {
		limit = defaultMaxConcurrent
	}
	logger.Info("transcribing speech intervals",
		logging.Int("intervals", len(intervals)),
		logging.Int("max_concurrent", limit),
		logging.Duration("audio_duration", audio.PCMDuration(pcm, sampleRate)),
	)

	segments := make([]*TranscriptSegment, len(intervals))
	failures := make([]*SegmentFailure, len(intervals))

	var group errgroup.Group
	group.SetLimit(limit)
	for i, interval := range intervals {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			segCtx := services.WithSegmentIndex(ctx, interval.Index)
			segment, err := p.Transcriber.Transcribe(segCtx, Request{
				Audio:        audio.SliceInterval(pcm, sampleRate, interval),
				SampleRate:   sampleRate,
				LanguageHint: languageHint,
				Index:        interval.Index,
				Start:        interval.Start,
				End:          interval.End,
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				failures[i] = &SegmentFailure{Index: interval.Index, Start: interval.Start, End: interval.End, Err: err}
				logging.WarnWithContext(logging.WithContext(segCtx, logger), "segment transcription failed",
					"segment_failed",
					logging.Duration("start", interval.Start),
					logging.Duration("end", interval.End),
					logging.Error(err),
					logging.String(logging.FieldImpact, "interval will be missing from the transcript"),
					logging.String(logging.FieldErrorHint, "rerun the command; cached segments are not requested again"),
				)
				return nil
			}
			segments[i] = &segment
			return nil
		})
	}
	_ = group.Wait()

	result := &PipelineResult{Intervals: intervals}
	for i := range intervals {
		if segments[i] != nil {
			result.Segments = append(result.Segments, *segments[i])
		}
		if failures[i] != nil {
			result.Failures = append(result.Failures, *failures[i])
		}
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	logger.Info("transcription complete",
		logging.Int("segments", len(result.Segments)),
		logging.Int("failed", len(result.Failures)),
	)
	return result, nil
}

// Document converts the transcribed segments into a subtitle document. Empty
// transcripts are dropped.
func (r *PipelineResult) Document(source string) *subtitle.Document {
	if r == nil {
		return subtitle.NewDocument(subtitle.FormatSRT, source, nil)
	}
	cues := make([]subtitle.Cue, 0, len(r.Segments))
	for _, segment := range r.Segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		cues = append(cues, subtitle.Cue{
			ID:    segment.Index + 1,
			Start: segment.Start,
			End:   segment.End,
			Lines: strings.Split(text, "\n"),
		})
	}
	return subtitle.NewDocument(subtitle.FormatSRT, source, cues)
}

// Err summarizes the failures, or nil when every segment succeeded.
func (r *PipelineResult) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, failure := range r.Failures {
		errs = append(errs, failure)
	}
	return fmt.Errorf("%d of %d segments failed: %w", len(r.Failures), len(r.Intervals), errors.Join(errs...))
}
