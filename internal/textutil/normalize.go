package textutil

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var (
	htmlTagPattern     = regexp.MustCompile(`</?[A-Za-z][^>]*>`)
	overrideTagPattern = regexp.MustCompile(`\{\\[^}]*\}`)
)

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Mn)), // accents, after decomposition
			runes.Remove(runes.In(unicode.Cf)), // zero-width joiners, BOM
			width.Fold,
			norm.NFC,
		)
	},
}

// StripTags removes HTML-style tags (<i>, <font ...>) and ASS override blocks
// ({\an8}, {\i1}) from s.
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<{") {
		return s
	}
	s = htmlTagPattern.ReplaceAllString(s, "")
	return overrideTagPattern.ReplaceAllString(s, "")
}

// Normalize returns the comparison form of s: tags stripped, Unicode folded,
// punctuation replaced by spaces and whitespace collapsed.
func Normalize(s string) string {
	return strings.Join(Tokens(s), " ")
}

// Tokens splits the normalized form of s into word tokens.
func Tokens(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = StripTags(strings.ToValidUTF8(s, ""))

	tr := chainPool.Get().(transform.Transformer)
	folded, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		folded = strings.ToLower(s)
	}

	return strings.FieldsFunc(folded, isSeparator)
}

func isSeparator(r rune) bool {
	if r == '\'' || r == '’' {
		return false
	}
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}
