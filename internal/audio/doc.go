// Package audio turns mono 16-bit PCM into speech intervals.
//
// A Classifier labels fixed-size frames as speech or silence: either a loudness
// threshold or, in cgo builds, the WebRTC voice activity detector. The Segmenter
// joins runs of speech frames, bridges short gaps, discards blips, pads each
// interval so word edges are not clipped, and merges padded intervals that
// touch. The same samples and settings always produce the same intervals.
//
// ExtractPCM shells out to ffmpeg for the decode; EncodeWAV wraps PCM for
// services that expect a file.
package audio
