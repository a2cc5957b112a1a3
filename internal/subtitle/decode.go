package subtitle

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode converts raw subtitle bytes to UTF-8 text. A byte-order mark wins
// over everything else, then a declared charset name (any WHATWG label such
// as "latin1" or "shift_jis"), then valid UTF-8. Anything else is read as
// Windows-1252. It returns the text and the canonical name of the encoding
// that was applied.
func Decode(data []byte, declared string) (string, string, error) {
	var (
		enc  encoding.Encoding
		name string
	)
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		enc, name = unicode.UTF8, "utf-8"
	case bytes.HasPrefix(data, bomUTF16LE):
		enc, name = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), "utf-16le"
	case bytes.HasPrefix(data, bomUTF16BE):
		enc, name = unicode.UTF16(unicode.BigEndian, unicode.UseBOM), "utf-16be"
	case strings.TrimSpace(declared) != "":
		var err error
		enc, err = htmlindex.Get(strings.TrimSpace(declared))
		if err != nil {
			return "", "", fmt.Errorf("unknown encoding %q: %w", declared, err)
		}
		if name, err = htmlindex.Name(enc); err != nil {
			name = strings.ToLower(strings.TrimSpace(declared))
		}
	case utf8.Valid(data):
		name = "utf-8"
	default:
		enc, name = charmap.Windows1252, "windows-1252"
	}

	text := string(data)
	if enc != nil {
		out, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), data)
		if err != nil {
			return "", "", fmt.Errorf("decode %s: %w", name, err)
		}
		text = string(out)
	}
	text = strings.TrimPrefix(text, "\ufeff")
	if strings.ContainsRune(text, 0) {
		return "", "", errors.New("input contains NUL bytes; not a text subtitle file")
	}
	return text, name, nil
}

// normalizeNewlines converts CRLF and lone CR line endings to LF.
func normalizeNewlines(text string) string {
	if !strings.ContainsRune(text, '\r') {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
