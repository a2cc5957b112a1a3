package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tandem/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func endpointServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckTranscriptionEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		status int
		key    string
		passed bool
	}{
		{"ok", http.StatusOK, "good-key", true},
		{"no models endpoint", http.StatusNotFound, "good-key", true},
		{"bad key", http.StatusOK, "bad-key", false},
		{"server error", http.StatusInternalServerError, "good-key", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := endpointServer(t, tt.status)
			result := CheckTranscriptionEndpoint(context.Background(), config.Transcription{BaseURL: srv.URL + "/v1/", APIKey: tt.key})
			if result.Passed != tt.passed {
				t.Fatalf("passed = %v (%s), want %v", result.Passed, result.Detail, tt.passed)
			}
		})
	}
}

func TestCheckTranscriptionEndpoint_MissingFields(t *testing.T) {
	if CheckTranscriptionEndpoint(context.Background(), config.Transcription{APIKey: "k"}).Passed {
		t.Fatal("expected failure for missing URL")
	}
	if CheckTranscriptionEndpoint(context.Background(), config.Transcription{BaseURL: "http://localhost"}).Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestCheckCache(t *testing.T) {
	result := CheckCache(context.Background(), filepath.Join(t.TempDir(), "transcripts.db"))
	if !result.Passed || !strings.Contains(result.Detail, "0 entries") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckSystemDeps(t *testing.T) {
	t.Setenv("PATH", "")
	cfg := config.Default()
	statuses := CheckSystemDeps(context.Background(), &cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected ffmpeg, ffprobe and uvx statuses, got %d", len(statuses))
	}
	if statuses[0].Available || statuses[0].Optional {
		t.Fatalf("ffmpeg must be required and missing, got %#v", statuses[0])
	}
	if statuses[1].Name != "ffprobe" || !statuses[1].Optional {
		t.Fatalf("ffprobe should be optional, got %#v", statuses[1])
	}
	if !statuses[2].Optional {
		t.Fatal("uvx is optional for the http provider")
	}

	cfg.Transcription.Provider = config.ProviderWhisperX
	if CheckSystemDeps(context.Background(), &cfg)[2].Optional {
		t.Fatal("uvx is required for the whisperx provider")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.LogDir = ""
	cfg.Transcription.APIKey = ""

	results := RunAll(context.Background(), &cfg)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}
}

func TestRunAll_IncludesEndpointWithKey(t *testing.T) {
	srv := endpointServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Transcription.BaseURL = srv.URL + "/v1"
	cfg.Transcription.APIKey = "good-key"

	results := RunAll(context.Background(), &cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if last := results[3]; last.Name != "Transcription API" || !last.Passed {
		t.Fatalf("endpoint check = %+v", last)
	}
}

func TestCheckTranscriptionFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.APIKey = ""
	if CheckTranscriptionFromConfig(context.Background(), &cfg).Passed {
		t.Fatal("expected missing key to fail")
	}
	cfg.Transcription.Provider = config.ProviderWhisperX
	cfg.Transcription.WhisperXCUDA = true
	result := CheckTranscriptionFromConfig(context.Background(), &cfg)
	if !result.Passed || !strings.Contains(result.Detail, "CUDA") {
		t.Fatalf("unexpected whisperx status %+v", result)
	}
}
