package subtitle

import (
	"strconv"
	"strings"
	"time"
)

func parseSRT(text, source string) ([]Cue, []*ParseError, error) {
	var (
		cues    []Cue
		skipped []*ParseError
	)
	for _, blk := range splitBlocks(text) {
		cue, perr := parseSRTBlock(blk, source)
		if perr != nil {
			skipped = append(skipped, perr)
			continue
		}
		cues = append(cues, cue)
	}
	return cues, skipped, nil
}

func parseSRTBlock(blk block, source string) (Cue, *ParseError) {
	lines := blk.lines
	timingAt := -1
	for i := 0; i < len(lines) && i < 2; i++ {
		if strings.Contains(lines[i], "-->") {
			timingAt = i
			break
		}
	}
	id := 0
	if timingAt > 0 {
		id, _ = strconv.Atoi(strings.TrimSpace(lines[0]))
	}
	if timingAt < 0 {
		return Cue{}, &ParseError{Source: source, Line: blk.line, Reason: "cue block has no timing line"}
	}
	return buildCue(blk.line+timingAt, id, lines[timingAt], lines[timingAt+1:], source)
}

// buildCue parses the timing line shared by SRT and WebVTT blocks.
func buildCue(line, id int, timing string, text []string, source string) (Cue, *ParseError) {
	start, end, err := parseTiming(timing)
	if err != nil {
		return Cue{}, &ParseError{Source: source, Line: line, CueID: id, Reason: err.Error()}
	}
	if end < start {
		return Cue{}, &ParseError{Source: source, Line: line, CueID: id, Reason: "end time precedes start time"}
	}
	if end == start {
		end = start + time.Millisecond
	}
	return Cue{ID: id, Start: start, End: end, Lines: append([]string(nil), text...)}, nil
}
