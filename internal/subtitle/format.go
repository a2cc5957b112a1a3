package subtitle

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tandem/internal/logging"
)

// Format identifies a subtitle grammar.
type Format int

const (
	// FormatUnknown asks Parse to detect the grammar.
	FormatUnknown Format = iota
	FormatSRT
	FormatVTT
	FormatASS
)

func (f Format) String() string {
	switch f {
	case FormatSRT:
		return "srt"
	case FormatVTT:
		return "vtt"
	case FormatASS:
		return "ass"
	default:
		return "unknown"
	}
}

// ParseFormat resolves a format name such as "srt", "webvtt" or "ssa".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "", "auto":
		return FormatUnknown, nil
	case "srt", "subrip":
		return FormatSRT, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	case "ass", "ssa":
		return FormatASS, nil
	default:
		return FormatUnknown, fmt.Errorf("unsupported subtitle format %q", name)
	}
}

// DetectFormat picks a grammar from the file extension, falling back to the
// content: a WEBVTT header or an ASS section header, otherwise SRT.
func DetectFormat(name string, data []byte) Format {
	if name != "" {
		if format, err := ParseFormat(filepath.Ext(name)); err == nil && format != FormatUnknown {
			return format
		}
	}
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	head = bytes.TrimPrefix(head, bomUTF8)
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("WEBVTT")) {
		return FormatVTT
	}
	lower := bytes.ToLower(head)
	if bytes.Contains(lower, []byte("[script info]")) || bytes.Contains(lower, []byte("[events]")) {
		return FormatASS
	}
	return FormatSRT
}

// Parse runs the grammar for f over decoded, LF-normalized text. It returns
// the cues that parsed, the recoverable errors for the ones that did not, and
// a non-nil error when the input is structurally broken.
func (f Format) Parse(text, source string) ([]Cue, []*ParseError, error) {
	switch f {
	case FormatSRT:
		return parseSRT(text, source)
	case FormatVTT:
		return parseVTT(text, source)
	case FormatASS:
		return parseASS(text, source)
	default:
		return nil, nil, &ParseError{Source: source, Reason: "subtitle format not specified"}
	}
}

// ParseOptions controls Parse.
type ParseOptions struct {
	// Name is used for error messages and extension-based detection.
	Name string
	// Encoding is an optional declared charset; BOMs still take precedence.
	Encoding string
	// Format forces a grammar; FormatUnknown detects one.
	Format Format
	Logger *slog.Logger
}

// Parse decodes data and builds a normalized Document.
func Parse(data []byte, opts ParseOptions) (*Document, error) {
	text, encodingName, err := Decode(data, opts.Encoding)
	if err != nil {
		return nil, &ParseError{Source: opts.Name, Reason: err.Error()}
	}
	format := opts.Format
	if format == FormatUnknown {
		format = DetectFormat(opts.Name, []byte(text))
	}

	cues, skipped, err := format.Parse(normalizeNewlines(text), opts.Name)
	if err != nil {
		return nil, err
	}
	if len(cues) == 0 && len(skipped) > 0 {
		return nil, &ParseError{
			Source: opts.Name,
			Line:   skipped[0].Line,
			Reason: fmt.Sprintf("no cue could be parsed (%d malformed); first error: %s", len(skipped), skipped[0].Reason),
		}
	}

	logger := opts.Logger
	for _, perr := range skipped {
		logging.WarnWithContext(logger, "subtitle cue skipped", "subtitle_cue_skipped",
			logging.String(logging.FieldSource, perr.Source),
			logging.Int("line", perr.Line),
			logging.Int("cue_id", perr.CueID),
			logging.String("reason", perr.Reason),
			logging.String(logging.FieldErrorHint, "fix the cue timing in the source file"),
			logging.String(logging.FieldImpact, "cue omitted from alignment"),
		)
	}

	doc := NewDocument(format, opts.Name, cues)
	doc.skipped = skipped
	if logger != nil {
		logger.Debug("subtitle parsed",
			logging.String(logging.FieldSource, opts.Name),
			logging.String("format", format.String()),
			logging.String("encoding", encodingName),
			logging.Int("cues", doc.Len()),
			logging.Int("skipped", len(skipped)),
		)
	}
	return doc, nil
}

// ParseFile reads path and parses it. opts.Name defaults to path.
func ParseFile(path string, opts ParseOptions) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitle: %w", err)
	}
	if opts.Name == "" {
		opts.Name = path
	}
	return Parse(data, opts)
}

// block is a run of non-blank lines; line is the 1-based number of its first line.
type block struct {
	line  int
	lines []string
}

func splitBlocks(text string) []block {
	var (
		blocks  []block
		current *block
	)
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			current = nil
			continue
		}
		if current == nil {
			blocks = append(blocks, block{line: i + 1})
			current = &blocks[len(blocks)-1]
		}
		current.lines = append(current.lines, strings.TrimRight(line, " \t"))
	}
	return blocks
}
