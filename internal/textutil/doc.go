// Package textutil compares short passages of subtitle text.
//
// Text is normalized through a golang.org/x/text transform chain (NFKD, case
// folding, combining and format mark removal, width folding, NFC) after formatting
// tags are stripped. Punctuation and symbols become token separators.
//
// Similarity is one minus the token-level Levenshtein distance divided by the
// longer token count, so identical passages score 1 and disjoint ones score 0.
package textutil
