// Package subtitle parses subtitle files into a common cue model.
//
// Three grammars are supported as tagged Format variants: SubRip (SRT),
// WebVTT and Advanced SubStation Alpha (ASS/SSA). Parse decodes the input to
// UTF-8 (BOM sniffing, declared charsets, Windows-1252 fallback), picks a
// grammar from the file name or content, and builds a normalized Document.
//
// A malformed cue is recoverable: it is skipped, recorded on the Document and
// logged as a warning. Structural breakage (undecodable bytes, missing headers,
// or no cue parsing at all) aborts with a *ParseError.
//
// EncodeSRT re-serializes any Document as SRT with renumbered cues, which is
// also how transcript chunks are written back out.
package subtitle
