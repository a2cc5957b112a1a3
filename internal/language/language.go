package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// aliases covers English word forms and ISO 639-2/B codes that BCP 47 parsing
// does not accept.
var aliases = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
	"fre":        "fr",
	"ger":        "de",
	"chi":        "zh",
	"dut":        "nl",
	"cze":        "cs",
	"gre":        "el",
	"per":        "fa",
	"rum":        "ro",
	"slo":        "sk",
}

func lookup(code string) (language.Base, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == "und" {
		return language.Base{}, false
	}
	if alias, ok := aliases[code]; ok {
		code = alias
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Base{}, false
	}
	base, confidence := tag.Base()
	if confidence != language.Exact {
		return language.Base{}, false
	}
	return base, true
}

// ToISO2 converts a language code, tag (pt-BR) or English name to ISO 639-1.
// Returns empty string for unrecognized input or languages without a
// two-letter code.
func ToISO2(code string) string {
	base, ok := lookup(code)
	if !ok {
		return ""
	}
	if s := base.String(); len(s) == 2 {
		return s
	}
	return ""
}

// ToISO3 converts a recognized language to ISO 639-2/T. Returns "und" otherwise.
func ToISO3(code string) string {
	base, ok := lookup(code)
	if !ok {
		return "und"
	}
	return base.ISO3()
}

// DisplayName returns the English name of a recognized language.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if base, ok := lookup(code); ok {
		if name := display.English.Languages().Name(base); name != "" {
			return name
		}
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// Hint normalizes a user-supplied language hint for transcription services:
// ISO 639-1 when known, otherwise empty so the service auto-detects.
func Hint(code string) string {
	return ToISO2(code)
}
