// Package logs reads tandem's own log file for the `tandem logs` command.
//
// Last returns the final N matching lines with bounded memory; Follow polls
// from an offset and hands each new line to a callback until the context ends.
// Truncated or rotated files restart from the beginning.
package logs
