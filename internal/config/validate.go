package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateSegmenter(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAlignment() error {
	a := c.Alignment
	if a.MinOverlapRatio < 0 || a.MinOverlapRatio > 1 {
		return errors.New("alignment.min_overlap_ratio must be between 0 and 1")
	}
	if a.WindowSeconds < 0 {
		return errors.New("alignment.window_seconds must be non-negative")
	}
	if a.OverlapWeight < 0 || a.SimilarityWeight < 0 {
		return errors.New("alignment weights must be non-negative")
	}
	if a.OverlapWeight+a.SimilarityWeight == 0 {
		return errors.New("alignment.overlap_weight and alignment.similarity_weight cannot both be zero")
	}
	return nil
}

func (c *Config) validateSegmenter() error {
	s := c.Segmenter
	switch s.Method {
	case "auto", "energy", "webrtc":
	default:
		return fmt.Errorf("segmenter.method %q is not supported (use auto, energy or webrtc)", s.Method)
	}
	if s.WebRTCMode < 0 || s.WebRTCMode > 3 {
		return fmt.Errorf("segmenter.webrtc_mode must be between 0 and 3 (got %d)", s.WebRTCMode)
	}
	switch s.FrameMs {
	case 10, 20, 30:
	default:
		return fmt.Errorf("segmenter.frame_ms must be 10, 20 or 30 (got %d)", s.FrameMs)
	}
	switch s.SampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return fmt.Errorf("segmenter.sample_rate must be 8000, 16000, 32000 or 48000 (got %d)", s.SampleRate)
	}
	if s.PaddingMs < 0 || s.MinSpeechMs < 0 || s.MergeGapMs < 0 {
		return errors.New("segmenter padding_ms, min_speech_ms and merge_gap_ms must be non-negative")
	}
	if s.EnergyThreshold >= 0 {
		return fmt.Errorf("segmenter.energy_threshold_db must be negative dBFS (got %.1f)", s.EnergyThreshold)
	}
	return nil
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	switch t.Provider {
	case ProviderHTTP, ProviderWhisperX:
	default:
		return fmt.Errorf("transcription.provider %q is not supported (use http or whisperx)", t.Provider)
	}
	if t.RequestsPerMinute < 0 {
		return errors.New("transcription.requests_per_minute must be non-negative")
	}
	if t.MaxBackoffMs < t.InitialBackoffMs {
		return errors.New("transcription.max_backoff_ms must be at least initial_backoff_ms")
	}
	return nil
}

// RequireAPIKey reports a configuration error when the HTTP provider has no key.
func (c *Config) RequireAPIKey() error {
	if c.Transcription.Provider != ProviderHTTP || c.Transcription.APIKey != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("transcription.api_key is required for the http provider. Set %s or edit %s (create with 'tandem config init')", apiKeyEnv, defaultPath)
}
