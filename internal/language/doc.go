// Package language normalizes language codes for transcription hints and
// display, backed by golang.org/x/text/language.
package language
