package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"tandem/internal/config"
	"tandem/internal/deps"
	"tandem/internal/transcription"
)

// CheckTranscriptionEndpoint verifies that the transcription API is reachable
// and accepts the key. It issues a single GET <base>/models with no retries.
func CheckTranscriptionEndpoint(ctx context.Context, cfg config.Transcription) Result {
	const name = "Transcription API"

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/models", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(cfg.APIKey))

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeRequestError(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	case resp.StatusCode == http.StatusNotFound:
		// Self-hosted whisper servers often skip the models listing.
		return Result{Name: name, Passed: true, Detail: "Reachable (no models endpoint)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCache opens the transcript cache and reports how many entries it holds.
func CheckCache(ctx context.Context, path string) Result {
	const name = "Transcript cache"
	cache, err := transcription.OpenCache(ctx, path, nil)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer cache.Close()
	stats, err := cache.Stats(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	var entries int64
	for _, s := range stats {
		entries += s.Entries
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries, %d engine versions)", path, entries, len(stats))}
}

// CheckSystemDeps evaluates the external binaries the configuration needs.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	statuses := []deps.Status{deps.ResolveFFmpeg(ctx, cfg.FFmpegBinary())}
	requirements := []deps.Requirement{
		{
			Name:        "ffprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Picks the dialogue audio stream when --stream is not given",
			Optional:    true,
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "uvx",
			Command:     "uvx",
			Description: "Required for WhisperX-driven transcription",
			Optional:    cfg.Transcription.Provider != config.ProviderWhisperX,
			VersionArgs: []string{"--version"},
		},
	}
	return append(statuses, deps.CheckBinaries(ctx, requirements)...)
}

func summarizeRequestError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (transcription API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (transcription API unreachable)"
	}
	return err.Error()
}
