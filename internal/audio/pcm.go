package audio

import (
	"bytes"
	"encoding/binary"
	"time"
)

const bytesPerSample = 2

// PCMDuration returns the play time of s16le mono PCM.
func PCMDuration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := int64(len(pcm) / bytesPerSample)
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// sampleOffset converts a time offset to a byte offset aligned to a sample.
func sampleOffset(at time.Duration, sampleRate int) int {
	if at <= 0 {
		return 0
	}
	samples := int64(at) * int64(sampleRate) / int64(time.Second)
	return int(samples) * bytesPerSample
}

// SliceInterval returns the PCM bytes covering interval, clamped to the
// buffer and aligned to sample boundaries. The result shares no memory with
// samples.
func SliceInterval(samples []byte, sampleRate int, interval SpeechInterval) []byte {
	start := min(sampleOffset(interval.Start, sampleRate), len(samples)&^1)
	end := min(sampleOffset(interval.End, sampleRate), len(samples)&^1)
	if end <= start {
		return nil
	}
	return bytes.Clone(samples[start:end])
}

// EncodeWAV wraps s16le mono PCM in a canonical 44-byte RIFF/WAVE header.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	const headerSize = 44
	dataSize := uint32(len(pcm))
	byteRate := uint32(sampleRate * bytesPerSample)

	buf := make([]byte, headerSize, headerSize+len(pcm))
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], 36+dataSize)
	copy(buf[8:], "WAVE")
	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:], byteRate)
	binary.LittleEndian.PutUint16(buf[32:], bytesPerSample)
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], dataSize)
	return append(buf, pcm...)
}
