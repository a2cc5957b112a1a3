package subtitle

import (
	"fmt"
	"strings"
	"time"
)

var assTextReplacer = strings.NewReplacer(`\h`, " ")

func parseASS(text, source string) ([]Cue, []*ParseError, error) {
	var (
		cues     []Cue
		skipped  []*ParseError
		inEvents bool
		sawEvent bool
		fields   []string
	)
	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inEvents = strings.EqualFold(line, "[Events]")
			sawEvent = sawEvent || inEvents
			continue
		}
		if !inEvents {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Format":
			fields = splitASSFormat(value)
		case "Dialogue":
			if fields == nil {
				return nil, nil, &ParseError{Source: source, Line: lineNo, Reason: "Dialogue line before [Events] Format line"}
			}
			cue, perr := parseASSDialogue(fields, value, lineNo, source)
			if perr != nil {
				skipped = append(skipped, perr)
				continue
			}
			cues = append(cues, cue)
		}
	}
	if !sawEvent {
		return nil, nil, &ParseError{Source: source, Reason: "missing [Events] section"}
	}
	if fields == nil {
		return nil, nil, &ParseError{Source: source, Reason: "[Events] section has no Format line"}
	}
	return cues, skipped, nil
}

func splitASSFormat(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, len(parts))
	for i, part := range parts {
		out[i] = strings.ToLower(strings.TrimSpace(part))
	}
	return out
}

func parseASSDialogue(fields []string, value string, lineNo int, source string) (Cue, *ParseError) {
	values := strings.SplitN(value, ",", len(fields))
	if len(values) != len(fields) {
		return Cue{}, &ParseError{
			Source: source,
			Line:   lineNo,
			Reason: fmt.Sprintf("dialogue has %d fields, format declares %d", len(values), len(fields)),
		}
	}
	byName := make(map[string]string, len(fields))
	for i, name := range fields {
		byName[name] = values[i]
	}
	start, err := parseTimestamp(byName["start"])
	if err != nil {
		return Cue{}, &ParseError{Source: source, Line: lineNo, Reason: "start: " + err.Error()}
	}
	end, err := parseTimestamp(byName["end"])
	if err != nil {
		return Cue{}, &ParseError{Source: source, Line: lineNo, Reason: "end: " + err.Error()}
	}
	if end < start {
		return Cue{}, &ParseError{Source: source, Line: lineNo, Reason: "end time precedes start time"}
	}
	body := assTextReplacer.Replace(byName["text"])
	body = strings.ReplaceAll(body, `\n`, `\N`)
	lines := strings.Split(body, `\N`)
	if end == start {
		end = start + time.Millisecond
	}
	return Cue{Start: start, End: end, Lines: lines}, nil
}
