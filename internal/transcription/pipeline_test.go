package transcription

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"tandem/internal/audio"
)

const pipelineRate = 16000

// speechPCM renders alternating silence and tone blocks. Each entry is a
// duration in milliseconds; even entries are silence, odd entries are tone.
func speechPCM(blocks ...int) []byte {
	var pcm []byte
	for i, ms := range blocks {
		samples := pipelineRate * ms / 1000
		freq := 220.0 * float64(i+1)
		for n := 0; n < samples; n++ {
			var v int16
			if i%2 == 1 {
				v = int16(9000 * math.Sin(2*math.Pi*freq*float64(n)/pipelineRate))
			}
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
		}
	}
	return pcm
}

type fakeTranscriber struct {
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	calls       atomic.Int64
	failIndex   int
	onCall      func(req Request)
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req Request) (TranscriptSegment, error) {
	f.calls.Add(1)
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxInFlight.Load()
		if current <= seen || f.maxInFlight.CompareAndSwap(seen, current) {
			break
		}
	}
	if f.onCall != nil {
		f.onCall(req)
	}
	// Later intervals finish first so ordering depends on reassembly.
	time.Sleep(time.Duration(10-req.Index) * 3 * time.Millisecond)
	if err := ctx.Err(); err != nil {
		return TranscriptSegment{}, err
	}
	if req.Index == f.failIndex {
		return TranscriptSegment{}, &Error{Kind: Permanent, Op: "submit", Err: errors.New("rejected")}
	}
	return TranscriptSegment{
		Index:      req.Index,
		Start:      req.Start,
		End:        req.End,
		Text:       fmt.Sprintf("segment %d", req.Index),
		SourceHash: HashAudio(req.Audio),
	}, nil
}

func TestPipelineOrdersResultsAndBoundsConcurrency(t *testing.T) {
	pcm := speechPCM(990, 510, 990, 510, 990, 510, 990, 510, 990)
	transcriber := &fakeTranscriber{failIndex: -1}
	pipeline := &Pipeline{Segmenter: audio.DefaultSegmenter(), Transcriber: transcriber, MaxConcurrent: 2}

	result, err := pipeline.Run(context.Background(), pcm, pipelineRate, "es")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Intervals) != 4 || len(result.Segments) != 4 {
		t.Fatalf("expected 4 intervals and segments, got %d/%d", len(result.Intervals), len(result.Segments))
	}
	for i, segment := range result.Segments {
		if segment.Index != i || segment.Text != fmt.Sprintf("segment %d", i) {
			t.Fatalf("segment %d out of order: %+v", i, segment)
		}
		if i > 0 && segment.Start < result.Segments[i-1].End {
			t.Fatalf("segments overlap at %d", i)
		}
	}
	if got := transcriber.maxInFlight.Load(); got > 2 {
		t.Fatalf("max in flight = %d, want <= 2", got)
	}
	if result.Err() != nil {
		t.Fatalf("unexpected failures %v", result.Err())
	}

	doc := result.Document("transcript")
	if doc.Len() != 4 {
		t.Fatalf("document cues = %d", doc.Len())
	}
	if cue, ok := doc.Find(1); !ok || cue.Text() != "segment 0" {
		t.Fatalf("first cue = %+v", cue)
	}
}

func TestPipelineRecordsSegmentFailures(t *testing.T) {
	pcm := speechPCM(990, 510, 990, 510, 990, 510, 990)
	transcriber := &fakeTranscriber{failIndex: 1}
	pipeline := &Pipeline{Transcriber: transcriber, MaxConcurrent: 3}

	result, err := pipeline.Run(context.Background(), pcm, pipelineRate, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Segments) != 2 || len(result.Failures) != 1 {
		t.Fatalf("segments=%d failures=%d", len(result.Segments), len(result.Failures))
	}
	if result.Failures[0].Index != 1 {
		t.Fatalf("failure index = %d", result.Failures[0].Index)
	}
	if result.Segments[0].Index != 0 || result.Segments[1].Index != 2 {
		t.Fatalf("unexpected segment indexes %+v", result.Segments)
	}
	var typed *Error
	if !errors.As(result.Err(), &typed) || typed.Kind != Permanent {
		t.Fatalf("expected joined error to expose the cause, got %v", result.Err())
	}
}

func TestPipelineCancellationStopsScheduling(t *testing.T) {
	pcm := speechPCM(990, 510, 990, 510, 990, 510, 990, 510, 990, 510, 990)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	transcriber := &fakeTranscriber{failIndex: -1, onCall: func(Request) { cancel() }}
	pipeline := &Pipeline{Transcriber: transcriber, MaxConcurrent: 1}

	result, err := pipeline.Run(ctx, pcm, pipelineRate, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if transcriber.calls.Load() != 1 {
		t.Fatalf("calls after cancel = %d, want 1", transcriber.calls.Load())
	}
	if result == nil || len(result.Segments) != 0 || len(result.Failures) != 0 {
		t.Fatalf("cancelled segments must be neither results nor failures: %+v", result)
	}
}

func TestPipelineSilence(t *testing.T) {
	pipeline := &Pipeline{Transcriber: &fakeTranscriber{failIndex: -1}}
	result, err := pipeline.Run(context.Background(), speechPCM(2000), pipelineRate, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Intervals) != 0 || result.Document("x").Len() != 0 {
		t.Fatalf("expected no intervals, got %+v", result)
	}
}

func TestPipelineRequiresTranscriber(t *testing.T) {
	if _, err := (&Pipeline{}).Run(context.Background(), nil, pipelineRate, ""); err == nil {
		t.Fatal("expected error without transcriber")
	}
}

func TestPipelineRerunServedFromCache(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)
	service := &scriptedService{version: "test:v1", script: []func(context.Context) (Result, error){succeed("hola")}}
	client := newTestClient(t, service, cache, 2)
	pipeline := &Pipeline{Transcriber: client, MaxConcurrent: 2}
	pcm := speechPCM(990, 1020, 990)

	first, err := pipeline.Run(ctx, pcm, pipelineRate, "es")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(first.Segments) != 1 || service.calls.Load() != 1 {
		t.Fatalf("first run: segments=%d calls=%d", len(first.Segments), service.calls.Load())
	}
	entries, err := cache.List(ctx, "", 0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one cache write, got %d (%v)", len(entries), err)
	}

	second, err := pipeline.Run(ctx, pcm, pipelineRate, "es")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if service.calls.Load() != 1 {
		t.Fatalf("rerun must not call the service, calls = %d", service.calls.Load())
	}
	if stats := client.Stats(); stats.CacheHits != 1 || stats.CacheMisses != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if second.Segments[0].SourceHash != first.Segments[0].SourceHash || second.Segments[0].Text != "hola" {
		t.Fatalf("rerun returned %+v", second.Segments[0])
	}
}
