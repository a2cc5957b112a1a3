package subtitle

import (
	"strconv"
	"strings"
)

func parseVTT(text, source string) ([]Cue, []*ParseError, error) {
	blocks := splitBlocks(text)
	if len(blocks) == 0 || !isVTTHeader(blocks[0].lines[0]) {
		return nil, nil, &ParseError{Source: source, Line: 1, Reason: "missing WEBVTT header"}
	}

	var (
		cues    []Cue
		skipped []*ParseError
	)
	for _, blk := range blocks[1:] {
		first := strings.TrimSpace(blk.lines[0])
		if isVTTMetadataBlock(first) {
			continue
		}
		timingAt := 0
		id := 0
		if !strings.Contains(first, "-->") {
			if len(blk.lines) < 2 || !strings.Contains(blk.lines[1], "-->") {
				skipped = append(skipped, &ParseError{Source: source, Line: blk.line, Reason: "cue block has no timing line"})
				continue
			}
			timingAt = 1
			id, _ = strconv.Atoi(first)
		}
		cue, perr := buildCue(blk.line+timingAt, id, blk.lines[timingAt], blk.lines[timingAt+1:], source)
		if perr != nil {
			skipped = append(skipped, perr)
			continue
		}
		cues = append(cues, cue)
	}
	return cues, skipped, nil
}

func isVTTHeader(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "WEBVTT") {
		return false
	}
	rest := line[len("WEBVTT"):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

func isVTTMetadataBlock(first string) bool {
	for _, keyword := range []string{"NOTE", "STYLE", "REGION"} {
		if first == keyword || strings.HasPrefix(first, keyword+" ") || strings.HasPrefix(first, keyword+"\t") {
			return true
		}
	}
	return false
}
