package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// commandRunner executes a command and returns stdout. Tests replace it.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

var runCommand commandRunner = execRunner

// ExtractPCM decodes one audio stream of source to mono s16le PCM at
// sampleRate. streamIndex is the absolute stream index; a negative value
// selects ffmpeg's default audio stream.
func ExtractPCM(ctx context.Context, ffmpegBinary, source string, streamIndex, sampleRate int) ([]byte, error) {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	out, err := runCommand(ctx, ffmpegBinary, pcmArgs(source, streamIndex, sampleRate)...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ExtractError{Reason: classifyExtractFailure(err), Err: err}
	}
	return out, nil
}

func pcmArgs(source string, streamIndex, sampleRate int) []string {
	mapArg := "0:a:0"
	if streamIndex >= 0 {
		mapArg = "0:" + strconv.Itoa(streamIndex)
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-nostdin",
		"-i", source,
		"-map", mapArg,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	}
}

// ExtractError describes a failed ffmpeg decode.
type ExtractError struct {
	// Reason is a short machine-readable cause such as "stream_missing".
	Reason string
	Err    error
}

func (e *ExtractError) Error() string {
	return "ffmpeg pcm extract (" + e.Reason + "): " + e.Err.Error()
}

func (e *ExtractError) Unwrap() error { return e.Err }

func classifyExtractFailure(err error) string {
	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "executable file not found"):
		return "ffmpeg_missing"
	case strings.Contains(message, "stream specifier") || strings.Contains(message, "matches no streams") || strings.Contains(message, "no such stream"):
		return "stream_missing"
	case strings.Contains(message, "no such file or directory"):
		return "source_missing"
	case strings.Contains(message, "error while decoding") || strings.Contains(message, "invalid data found when processing input") || strings.Contains(message, "could not find codec parameters"):
		return "decode_error"
	default:
		return "ffmpeg_failed"
	}
}
