package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
	WorkDir  string `toml:"work_dir"`
}

// Alignment contains tuning for the cue alignment sweep.
type Alignment struct {
	// MinOverlapRatio discards candidates whose intersection over the shorter
	// cue's duration falls below this value.
	MinOverlapRatio float64 `toml:"min_overlap_ratio"`
	// WindowSeconds bounds how far from a cue candidates are searched.
	WindowSeconds float64 `toml:"window_seconds"`
	// OverlapWeight and SimilarityWeight combine into the candidate score when
	// more than one candidate survives the threshold.
	OverlapWeight    float64 `toml:"overlap_weight"`
	SimilarityWeight float64 `toml:"similarity_weight"`
}

// Segmenter contains voice-activity segmentation settings.
type Segmenter struct {
	// Method selects the frame classifier: "energy", "webrtc" (cgo builds
	// only) or "auto", which prefers webrtc when it is compiled in.
	Method          string  `toml:"method"`
	WebRTCMode      int     `toml:"webrtc_mode"`
	SampleRate      int     `toml:"sample_rate"`
	FrameMs         int     `toml:"frame_ms"`
	PaddingMs       int     `toml:"padding_ms"`
	MinSpeechMs     int     `toml:"min_speech_ms"`
	MergeGapMs      int     `toml:"merge_gap_ms"`
	MaxSegmentMs    int     `toml:"max_segment_ms"`
	EnergyThreshold float64 `toml:"energy_threshold_db"`
}

// Transcription contains speech-to-text service and client settings.
type Transcription struct {
	// Provider selects the service adapter: "http" or "whisperx".
	Provider              string `toml:"provider"`
	BaseURL               string `toml:"base_url"`
	APIKey                string `toml:"api_key"`
	Model                 string `toml:"model"`
	EngineVersion         string `toml:"engine_version"`
	Language              string `toml:"language"`
	MaxConcurrent         int    `toml:"max_concurrent"`
	RequestsPerMinute     int    `toml:"requests_per_minute"`
	MaxAttempts           int    `toml:"max_attempts"`
	InitialBackoffMs      int    `toml:"initial_backoff_ms"`
	MaxBackoffMs          int    `toml:"max_backoff_ms"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	WhisperXCUDA          bool   `toml:"whisperx_cuda"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tandem.
//
// Configuration sections by subsystem:
//   - Paths: cache, log and scratch directories
//   - Alignment: overlap threshold, search window and scoring weights
//   - Segmenter: voice-activity frame classification and padding
//   - Transcription: speech-to-text provider, retry and concurrency limits
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Alignment     Alignment     `toml:"alignment"`
	Segmenter     Segmenter     `toml:"segmenter"`
	Transcription Transcription `toml:"transcription"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tandem.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache, log and work directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir, c.Paths.WorkDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CachePath returns the transcription cache database location.
func (c *Config) CachePath() string {
	return filepath.Join(c.Paths.CacheDir, "transcripts.db")
}

// FFmpegBinary returns the ffmpeg executable name used for audio extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used to pick audio streams.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// AlignmentWindow returns the candidate search window as a duration.
func (c *Config) AlignmentWindow() time.Duration {
	return time.Duration(c.Alignment.WindowSeconds * float64(time.Second))
}

// RequestTimeout returns the per-attempt transcription timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Transcription.RequestTimeoutSeconds) * time.Second
}

// Backoff returns the initial and maximum retry backoff.
func (c *Config) Backoff() (time.Duration, time.Duration) {
	return time.Duration(c.Transcription.InitialBackoffMs) * time.Millisecond,
		time.Duration(c.Transcription.MaxBackoffMs) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
