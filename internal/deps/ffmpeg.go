package deps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFmpeg reports the ffmpeg binary audio extraction will execute. A
// configured path containing a separator must point at an executable file;
// bare names are resolved from PATH.
func ResolveFFmpeg(ctx context.Context, command string) Status {
	result := resolveFFmpeg(command)
	if result.Available {
		result.Version, _ = Version(ctx, result.Command, "-version")
	}
	return result
}

func resolveFFmpeg(command string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Required to extract audio for transcription",
	}
	name := strings.TrimSpace(command)
	if name == "" {
		name = executableName("ffmpeg")
	}

	if strings.ContainsRune(name, filepath.Separator) {
		result.Command = name
		info, err := os.Stat(name)
		if err != nil || !isExecutable(info) {
			result.Detail = fmt.Sprintf("binary %q is not executable", name)
			return result
		}
		result.Available = true
		return result
	}

	resolved, err := exec.LookPath(name)
	if err != nil {
		result.Command = name
		result.Detail = fmt.Sprintf("binary %q not found", name)
		return result
	}
	result.Command = resolved
	result.Available = true
	return result
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
