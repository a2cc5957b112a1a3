// Package align pairs the cues of two subtitle tracks by time overlap.
//
// Align runs a single forward sweep over both tracks. Each left cue looks at
// the right cues inside a time window, keeps those whose overlap ratio
// (intersection over the shorter duration) reaches the threshold and picks
// one by a weighted blend of overlap and text similarity. Unpaired cues are
// reported as deletions (left only) or insertions (right only), so every
// input cue appears in exactly one AlignedPair and the output is ordered by
// time.
package align
