package align

import (
	"time"

	"tandem/internal/subtitle"
)

// PairKind classifies an AlignedPair.
type PairKind string

const (
	Matched   PairKind = "matched"
	Deletion  PairKind = "deletion"
	Insertion PairKind = "insertion"
)

// AlignedPair holds at most one cue from each side; at least one is set.
// OverlapRatio and Similarity are zero unless both sides are present.
type AlignedPair struct {
	Left         *subtitle.Cue
	Right        *subtitle.Cue
	OverlapRatio float64
	Similarity   float64
}

// Kind reports which sides are present.
func (p AlignedPair) Kind() PairKind {
	switch {
	case p.Left != nil && p.Right != nil:
		return Matched
	case p.Left != nil:
		return Deletion
	default:
		return Insertion
	}
}

// Start returns the earliest start among the present cues.
func (p AlignedPair) Start() time.Duration {
	switch {
	case p.Left != nil && p.Right != nil:
		return min(p.Left.Start, p.Right.Start)
	case p.Left != nil:
		return p.Left.Start
	case p.Right != nil:
		return p.Right.Start
	}
	return 0
}

// End returns the latest end among the present cues.
func (p AlignedPair) End() time.Duration {
	switch {
	case p.Left != nil && p.Right != nil:
		return max(p.Left.End, p.Right.End)
	case p.Left != nil:
		return p.Left.End
	case p.Right != nil:
		return p.Right.End
	}
	return 0
}

// Summary aggregates an alignment.
type Summary struct {
	Matched        int
	Deletions      int
	Insertions     int
	MeanOverlap    float64
	MeanSimilarity float64
}

// Summarize counts pair kinds and averages the scores of matched pairs.
func Summarize(pairs []AlignedPair) Summary {
	var s Summary
	var overlap, similarity float64
	for _, pair := range pairs {
		switch pair.Kind() {
		case Matched:
			s.Matched++
			overlap += pair.OverlapRatio
			similarity += pair.Similarity
		case Deletion:
			s.Deletions++
		case Insertion:
			s.Insertions++
		}
	}
	if s.Matched > 0 {
		s.MeanOverlap = overlap / float64(s.Matched)
		s.MeanSimilarity = similarity / float64(s.Matched)
	}
	return s
}

// Bilingual renders the pairs as one track: matched pairs span both cues and
// stack the left lines above the right lines; unpaired cues pass through.
func Bilingual(pairs []AlignedPair) []subtitle.Cue {
	cues := make([]subtitle.Cue, 0, len(pairs))
	for i, pair := range pairs {
		var lines []string
		if pair.Left != nil {
			lines = append(lines, pair.Left.Lines...)
		}
		if pair.Right != nil {
			lines = append(lines, pair.Right.Lines...)
		}
		cues = append(cues, subtitle.Cue{
			ID:    i + 1,
			Start: pair.Start(),
			End:   pair.End(),
			Lines: lines,
		})
	}
	return cues
}
