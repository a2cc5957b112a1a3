package testsupport

import (
	"context"
	"testing"

	"tandem/internal/config"
	"tandem/internal/transcription"
)

// MustOpenCache opens the transcript cache for cfg and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *transcription.Cache {
	t.Helper()

	cache, err := transcription.OpenCache(context.Background(), cfg.CachePath(), nil)
	if err != nil {
		t.Fatalf("transcription.OpenCache: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Close()
	})
	return cache
}
