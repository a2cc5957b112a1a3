package align

import (
	"fmt"
	"math"
	"slices"
	"time"

	"tandem/internal/config"
	"tandem/internal/subtitle"
	"tandem/internal/textutil"
)

// Default tuning values.
const (
	DefaultMinOverlapRatio  = 0.2
	DefaultWindow           = 3 * time.Second
	DefaultOverlapWeight    = 0.7
	DefaultSimilarityWeight = 0.3
)

const scoreEpsilon = 1e-9

// Config tunes the sweep.
type Config struct {
	MinOverlapRatio  float64
	Window           time.Duration
	OverlapWeight    float64
	SimilarityWeight float64
}

// DefaultConfig returns the package defaults.
func DefaultConfig() Config {
	return Config{
		MinOverlapRatio:  DefaultMinOverlapRatio,
		Window:           DefaultWindow,
		OverlapWeight:    DefaultOverlapWeight,
		SimilarityWeight: DefaultSimilarityWeight,
	}
}

// ConfigFrom converts the [alignment] configuration section.
func ConfigFrom(cfg config.Alignment) Config {
	return Config{
		MinOverlapRatio:  cfg.MinOverlapRatio,
		Window:           time.Duration(cfg.WindowSeconds * float64(time.Second)),
		OverlapWeight:    cfg.OverlapWeight,
		SimilarityWeight: cfg.SimilarityWeight,
	}
}

// Side names an input track.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// AlignmentError reports an input that violates the sweep preconditions.
type AlignmentError struct {
	Side   Side
	Index  int
	Reason string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("align: %s cue %d: %s", e.Side, e.Index, e.Reason)
}

// Overlap returns the intersection of a and b divided by the shorter of the
// two durations, in [0, 1].
func Overlap(a, b subtitle.Cue) float64 {
	shorter := min(a.Duration(), b.Duration())
	if shorter <= 0 {
		return 0
	}
	intersection := min(a.End, b.End) - max(a.Start, b.Start)
	if intersection <= 0 {
		return 0
	}
	return math.Min(1, float64(intersection)/float64(shorter))
}

type candidate struct {
	cue   subtitle.Cue
	order int
}

type emission struct {
	pair AlignedPair
	key  time.Duration
	seq  int
}

// Align pairs left and right cues. Both inputs must be ordered by start with
// positive durations; they are never reordered or modified.
func Align(left, right []subtitle.Cue, cfg Config) ([]AlignedPair, error) {
	if err := validate(Left, left); err != nil {
		return nil, err
	}
	if err := validate(Right, right); err != nil {
		return nil, err
	}
	if cfg.Window < 0 {
		cfg.Window = 0
	}

	emitted := make([]emission, 0, len(left)+len(right))
	emit := func(pair AlignedPair) {
		emitted = append(emitted, emission{pair: pair, key: pair.Start(), seq: len(emitted)})
	}
	insertion := func(cue subtitle.Cue) {
		emit(AlignedPair{Right: cueRef(cue)})
	}

	var pending []candidate
	next := 0
	for _, l := range left {
		lower := l.Start - cfg.Window
		upper := l.End + cfg.Window

		kept := pending[:0]
		for _, c := range pending {
			if c.cue.End <= lower {
				insertion(c.cue)
				continue
			}
			kept = append(kept, c)
		}
		pending = kept

		for next < len(right) && right[next].Start < upper {
			pending = append(pending, candidate{cue: right[next], order: next})
			next++
		}

		best, pair := choose(l, pending, cfg)
		emit(pair)
		if best >= 0 {
			pending = slices.Delete(pending, best, best+1)
		}
	}
	for _, c := range pending {
		insertion(c.cue)
	}
	for _, cue := range right[next:] {
		insertion(cue)
	}

	slices.SortStableFunc(emitted, func(a, b emission) int {
		if a.key != b.key {
			if a.key < b.key {
				return -1
			}
			return 1
		}
		return a.seq - b.seq
	})
	pairs := make([]AlignedPair, len(emitted))
	for i, e := range emitted {
		pairs[i] = e.pair
	}
	return pairs, nil
}

// choose returns the index in pending of the selected candidate (or -1) and
// the pair to emit for l.
func choose(l subtitle.Cue, pending []candidate, cfg Config) (int, AlignedPair) {
	type survivor struct {
		index   int
		overlap float64
	}
	var survivors []survivor
	lower, upper := l.Start-cfg.Window, l.End+cfg.Window
	for i, c := range pending {
		// pending may hold cues admitted for an earlier, longer left cue.
		if c.cue.End <= lower || c.cue.Start >= upper {
			continue
		}
		overlap := Overlap(l, c.cue)
		if overlap == 0 || overlap < cfg.MinOverlapRatio {
			continue
		}
		survivors = append(survivors, survivor{index: i, overlap: overlap})
	}
	if len(survivors) == 0 {
		return -1, AlignedPair{Left: cueRef(l)}
	}

	leftText := l.PlainText()
	best := -1
	var bestScore, bestOverlap, bestSimilarity float64
	for _, s := range survivors {
		c := pending[s.index]
		similarity := textutil.Similarity(leftText, c.cue.PlainText())
		score := s.overlap
		if len(survivors) > 1 {
			score = cfg.OverlapWeight*s.overlap + cfg.SimilarityWeight*similarity
		}
		if best < 0 || better(score, c, bestScore, pending[best]) {
			best = s.index
			bestScore = score
			bestOverlap = s.overlap
			bestSimilarity = similarity
		}
	}
	return best, AlignedPair{
		Left:         cueRef(l),
		Right:        cueRef(pending[best].cue),
		OverlapRatio: bestOverlap,
		Similarity:   bestSimilarity,
	}
}

// better orders candidates by score, then earliest start, then input order.
func better(score float64, c candidate, bestScore float64, current candidate) bool {
	if score > bestScore+scoreEpsilon {
		return true
	}
	if score < bestScore-scoreEpsilon {
		return false
	}
	if c.cue.Start != current.cue.Start {
		return c.cue.Start < current.cue.Start
	}
	return c.order < current.order
}

func validate(side Side, cues []subtitle.Cue) error {
	for i, cue := range cues {
		if cue.End <= cue.Start {
			return &AlignmentError{Side: side, Index: i, Reason: fmt.Sprintf("end %s is not after start %s", cue.End, cue.Start)}
		}
		if i > 0 && cue.Start < cues[i-1].Start {
			return &AlignmentError{Side: side, Index: i, Reason: "cues are not ordered by start"}
		}
	}
	return nil
}

func cueRef(cue subtitle.Cue) *subtitle.Cue {
	clone := cue.Clone()
	return &clone
}
