package subtitle

import (
	"fmt"
	"strings"
)

// ParseError reports malformed subtitle input. Line is 1-based; CueID is the
// identifier written in the file when one was present.
type ParseError struct {
	Source string
	Line   int
	CueID  int
	Reason string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	source := e.Source
	if source == "" {
		source = "<input>"
	}
	b.WriteString(source)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	if e.CueID > 0 {
		fmt.Fprintf(&b, " (cue %d)", e.CueID)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}
