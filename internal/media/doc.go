// Package media inspects media containers with ffprobe and picks the audio
// stream that carries the main dialogue.
//
// Inspect decodes ffprobe's JSON description of a file. SelectSpeechStream
// ranks the audio streams for transcription: a stream tagged with the
// requested language wins, commentary and audio-description tracks are pushed
// to the back, then the default flag, channel count and source quality break
// ties. The CLI uses the selection whenever the user does not pass an explicit
// stream index.
package media
