package subtitle

import (
	"slices"
	"sort"
	"strings"
	"time"
	"unicode"

	"tandem/internal/textutil"
)

// Cue is a single timed block of subtitle text.
type Cue struct {
	ID    int
	Start time.Duration
	End   time.Duration
	Lines []string
}

// Duration returns End - Start.
func (c Cue) Duration() time.Duration {
	return c.End - c.Start
}

// Text joins the raw lines, markup included.
func (c Cue) Text() string {
	return strings.Join(c.Lines, "\n")
}

// PlainText returns the cue text with formatting tags removed and lines
// joined by spaces.
func (c Cue) PlainText() string {
	parts := make([]string, 0, len(c.Lines))
	for _, line := range c.Lines {
		line = strings.TrimSpace(textutil.StripTags(line))
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// Clone returns a deep copy of the cue.
func (c Cue) Clone() Cue {
	c.Lines = slices.Clone(c.Lines)
	return c
}

// Document is an ordered, normalized sequence of cues. Documents are not
// modified after construction; accessors return copies.
type Document struct {
	cues    []Cue
	format  Format
	source  string
	skipped []*ParseError
}

// NewDocument normalizes cues and wraps them in a Document.
func NewDocument(format Format, source string, cues []Cue) *Document {
	return &Document{
		cues:   Normalize(cues),
		format: format,
		source: source,
	}
}

// Cues returns a copy of the document's cues.
func (d *Document) Cues() []Cue {
	if d == nil {
		return nil
	}
	out := make([]Cue, len(d.cues))
	for i, cue := range d.cues {
		out[i] = cue.Clone()
	}
	return out
}

// Len returns the number of cues.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.cues)
}

// Format reports the grammar the document was parsed from.
func (d *Document) Format() Format { return d.format }

// Source names the file or stream the document came from.
func (d *Document) Source() string { return d.source }

// Skipped returns the recoverable errors encountered while parsing.
func (d *Document) Skipped() []*ParseError {
	return slices.Clone(d.skipped)
}

// Find returns the cue with the given ID.
func (d *Document) Find(id int) (Cue, bool) {
	if d == nil || id < 1 || id > len(d.cues) {
		return Cue{}, false
	}
	return d.cues[id-1].Clone(), true
}

// Span returns the first start and the last end across all cues.
func (d *Document) Span() (time.Duration, time.Duration) {
	if d.Len() == 0 {
		return 0, 0
	}
	var last time.Duration
	for _, cue := range d.cues {
		last = max(last, cue.End)
	}
	return d.cues[0].Start, last
}

// Shift returns a copy of the document with every cue moved by offset.
// Cues that would start before zero are clamped.
func (d *Document) Shift(offset time.Duration) *Document {
	cues := d.Cues()
	for i := range cues {
		cues[i] = shiftCue(cues[i], offset)
	}
	return &Document{cues: Normalize(cues), format: d.format, source: d.source, skipped: d.Skipped()}
}

// Append returns a document holding d's cues followed by other's cues shifted
// by offset, renumbered from 1. It reassembles transcripts produced in chunks.
func (d *Document) Append(other *Document, offset time.Duration) *Document {
	cues := d.Cues()
	for _, cue := range other.Cues() {
		cues = append(cues, shiftCue(cue, offset))
	}
	skipped := append(d.Skipped(), other.Skipped()...)
	return &Document{cues: Normalize(cues), format: d.format, source: d.source, skipped: skipped}
}

func shiftCue(cue Cue, offset time.Duration) Cue {
	length := cue.Duration()
	cue.Start += offset
	if cue.Start < 0 {
		cue.Start = 0
	}
	cue.End = cue.Start + length
	return cue
}

// Normalize stable-sorts cues by start, merges cues sharing identical timing,
// trims trailing whitespace, drops cues without text or with inverted timing,
// stretches zero-length cues to 1ms and renumbers IDs from 1. The input slice
// is not modified.
func Normalize(cues []Cue) []Cue {
	sorted := make([]Cue, 0, len(cues))
	for _, cue := range cues {
		cue = cue.Clone()
		cue.Lines = cleanLines(cue.Lines)
		if len(cue.Lines) == 0 {
			continue
		}
		switch {
		case cue.End < cue.Start:
			continue
		case cue.End == cue.Start:
			cue.End = cue.Start + time.Millisecond
		}
		sorted = append(sorted, cue)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	out := make([]Cue, 0, len(sorted))
	// Cues sharing a start may still differ in end, so merge on the full key.
	byTiming := make(map[[2]time.Duration]int, len(sorted))
	for _, cue := range sorted {
		key := [2]time.Duration{cue.Start, cue.End}
		if idx, ok := byTiming[key]; ok {
			out[idx].Lines = mergeLines(out[idx].Lines, cue.Lines)
			continue
		}
		byTiming[key] = len(out)
		out = append(out, cue)
	}
	for i := range out {
		out[i].ID = i + 1
	}
	return out
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func mergeLines(existing, extra []string) []string {
	for _, line := range extra {
		if !slices.Contains(existing, line) {
			existing = append(existing, line)
		}
	}
	return existing
}
