package preflight

import (
	"context"
	"strings"

	"tandem/internal/config"
)

// CheckTranscriptionFromConfig summarizes the configured provider for status
// output, contacting the endpoint only when it can authenticate.
func CheckTranscriptionFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Transcription"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	t := cfg.Transcription
	switch t.Provider {
	case config.ProviderWhisperX:
		detail := "WhisperX (local, CPU)"
		if t.WhisperXCUDA {
			detail = "WhisperX (local, CUDA)"
		}
		return Result{Name: name, Passed: true, Detail: detail}
	case config.ProviderHTTP:
		if strings.TrimSpace(t.APIKey) == "" {
			return Result{Name: name, Detail: "Missing API key"}
		}
		check := CheckTranscriptionEndpoint(ctx, t)
		return Result{Name: name, Passed: check.Passed, Detail: t.Model + " via " + t.BaseURL + ": " + check.Detail}
	default:
		return Result{Name: name, Detail: "Unknown provider " + t.Provider}
	}
}
