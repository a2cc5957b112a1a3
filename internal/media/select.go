package media

import (
	"strconv"
	"strings"

	"tandem/internal/language"
)

// Selection is the audio stream chosen for transcription. Index is the
// absolute stream index, or -1 when the container has no audio.
type Selection struct {
	Stream Stream
	Index  int
	// LanguageMatched reports whether the stream's language tag matched the hint.
	LanguageMatched bool
}

var secondaryKeywords = []string{
	"commentary",
	"director",
	"description",
	"descriptive",
	"visually impaired",
	"karaoke",
	"isolated score",
}

// SelectSpeechStream ranks the audio streams for dialogue transcription.
// hint is any language form accepted by the language package; an empty hint
// skips language matching.
func SelectSpeechStream(streams []Stream, hint string) Selection {
	want := ""
	if strings.TrimSpace(hint) != "" {
		want = language.ToISO3(hint)
	}

	best := Selection{Index: -1}
	bestScore := 0.0
	order := 0
	for _, stream := range streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		matched := want != "" && want != "und" && language.ToISO3(stream.Language()) == want
		score := scoreSpeech(stream, matched, order)
		if best.Index < 0 || score > bestScore {
			best = Selection{Stream: stream, Index: stream.Index, LanguageMatched: matched}
			bestScore = score
		}
		order++
	}
	return best
}

func scoreSpeech(stream Stream, languageMatched bool, order int) float64 {
	score := 0.0
	if languageMatched {
		score += 1000
	}
	if isSecondary(stream.Title()) {
		score -= 500
	}
	if stream.Disposition["default"] == 1 {
		score += 100
	}
	if stream.Disposition["comment"] == 1 || stream.Disposition["visual_impaired"] == 1 {
		score -= 500
	}

	switch channels := channelCount(stream); {
	case channels >= 6:
		score += 50
	case channels >= 2:
		score += 40
	case channels == 1:
		score += 30
	}
	if isLossless(stream) {
		score += 5
	}
	return score - float64(order)*0.1
}

func isSecondary(title string) bool {
	for _, keyword := range secondaryKeywords {
		if strings.Contains(title, keyword) {
			return true
		}
	}
	return false
}

func channelCount(stream Stream) int {
	if stream.Channels > 0 {
		return stream.Channels
	}
	layout := strings.ToLower(strings.TrimSpace(stream.ChannelLayout))
	switch {
	case layout == "":
		return 0
	case layout == "mono":
		return 1
	case layout == "stereo":
		return 2
	}
	total := 0
	for _, part := range strings.Split(layout, ".") {
		part = strings.Trim(part, "abcdefghijklmnopqrstuvwxyz ()")
		if n, err := strconv.Atoi(part); err == nil {
			total += n
		}
	}
	return total
}

func isLossless(stream Stream) bool {
	switch strings.ToLower(stream.CodecName) {
	case "truehd", "flac", "mlp", "alac", "pcm_s16le", "pcm_s24le", "pcm_s32le", "pcm_bluray", "pcm_s24be", "pcm_s16be":
		return true
	}
	long := strings.ToLower(stream.CodecLong)
	return strings.Contains(long, "lossless") || strings.Contains(long, "master audio")
}
