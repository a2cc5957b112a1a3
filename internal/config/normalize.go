package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSegmenter()
	c.normalizeTranscription()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSegmenter() {
	c.Segmenter.Method = strings.ToLower(strings.TrimSpace(c.Segmenter.Method))
	if c.Segmenter.Method == "" {
		c.Segmenter.Method = defaultSegmenterMethod
	}
	if c.Segmenter.SampleRate <= 0 {
		c.Segmenter.SampleRate = defaultSampleRate
	}
	if c.Segmenter.FrameMs <= 0 {
		c.Segmenter.FrameMs = defaultFrameMs
	}
	if c.Segmenter.MaxSegmentMs < 0 {
		c.Segmenter.MaxSegmentMs = 0
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Provider = strings.ToLower(strings.TrimSpace(c.Transcription.Provider))
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = defaultProvider
	}
	c.Transcription.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcription.BaseURL), "/")
	if c.Transcription.BaseURL == "" {
		c.Transcription.BaseURL = defaultBaseURL
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultModel
	}
	c.Transcription.EngineVersion = strings.TrimSpace(c.Transcription.EngineVersion)
	if c.Transcription.EngineVersion == "" {
		c.Transcription.EngineVersion = c.Transcription.Provider + ":" + c.Transcription.Model
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if value, ok := os.LookupEnv(apiKeyEnv); ok && strings.TrimSpace(value) != "" {
		c.Transcription.APIKey = strings.TrimSpace(value)
	}
	c.Transcription.APIKey = strings.TrimSpace(c.Transcription.APIKey)
	if c.Transcription.MaxConcurrent <= 0 {
		c.Transcription.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Transcription.MaxAttempts <= 0 {
		c.Transcription.MaxAttempts = defaultMaxAttempts
	}
	if c.Transcription.InitialBackoffMs <= 0 {
		c.Transcription.InitialBackoffMs = defaultInitialBackoffMs
	}
	if c.Transcription.MaxBackoffMs <= 0 {
		c.Transcription.MaxBackoffMs = defaultMaxBackoffMs
	}
	if c.Transcription.RequestTimeoutSeconds <= 0 {
		c.Transcription.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
