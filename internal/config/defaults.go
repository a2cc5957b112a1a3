package config

const (
	defaultConfigPath            = "~/.config/tandem/config.toml"
	defaultCacheDir              = "~/.cache/tandem"
	defaultLogDir                = "~/.local/share/tandem/logs"
	defaultWorkDir               = "~/.local/share/tandem/work"
	defaultMinOverlapRatio       = 0.2
	defaultWindowSeconds         = 3.0
	defaultOverlapWeight         = 0.7
	defaultSimilarityWeight      = 0.3
	defaultSegmenterMethod       = "energy"
	defaultWebRTCMode            = 2
	defaultSampleRate            = 16000
	defaultFrameMs               = 30
	defaultPaddingMs             = 200
	defaultMinSpeechMs           = 250
	defaultMergeGapMs            = 300
	defaultMaxSegmentMs          = 30000
	defaultEnergyThresholdDB     = -40.0
	defaultProvider              = ProviderHTTP
	defaultBaseURL               = "https://api.openai.com/v1"
	defaultModel                 = "whisper-1"
	defaultMaxConcurrent         = 4
	defaultRequestsPerMinute     = 50
	defaultMaxAttempts           = 4
	defaultInitialBackoffMs      = 500
	defaultMaxBackoffMs          = 30000
	defaultRequestTimeoutSeconds = 120
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"

	apiKeyEnv = "TANDEM_TRANSCRIPTION_API_KEY"
)

// Transcription providers.
const (
	ProviderHTTP     = "http"
	ProviderWhisperX = "whisperx"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
			WorkDir:  defaultWorkDir,
		},
		Alignment: Alignment{
			MinOverlapRatio:  defaultMinOverlapRatio,
			WindowSeconds:    defaultWindowSeconds,
			OverlapWeight:    defaultOverlapWeight,
			SimilarityWeight: defaultSimilarityWeight,
		},
		Segmenter: Segmenter{
			Method:          defaultSegmenterMethod,
			WebRTCMode:      defaultWebRTCMode,
			SampleRate:      defaultSampleRate,
			FrameMs:         defaultFrameMs,
			PaddingMs:       defaultPaddingMs,
			MinSpeechMs:     defaultMinSpeechMs,
			MergeGapMs:      defaultMergeGapMs,
			MaxSegmentMs:    defaultMaxSegmentMs,
			EnergyThreshold: defaultEnergyThresholdDB,
		},
		Transcription: Transcription{
			Provider:              defaultProvider,
			BaseURL:               defaultBaseURL,
			Model:                 defaultModel,
			MaxConcurrent:         defaultMaxConcurrent,
			RequestsPerMinute:     defaultRequestsPerMinute,
			MaxAttempts:           defaultMaxAttempts,
			InitialBackoffMs:      defaultInitialBackoffMs,
			MaxBackoffMs:          defaultMaxBackoffMs,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
