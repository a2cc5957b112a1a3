package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"tandem/internal/audio"
	"tandem/internal/config"
	"tandem/internal/logging"
	"tandem/internal/media"
	"tandem/internal/services"
	"tandem/internal/services/whisperx"
	"tandem/internal/subtitle"
	"tandem/internal/transcription"
)

// newService builds the transcription adapter selected by the config.
func newService(cfg *config.Config) (transcription.Service, error) {
	tc := cfg.Transcription
	switch tc.Provider {
	case config.ProviderWhisperX:
		return whisperx.NewService(whisperx.Config{
			Model:         tc.Model,
			CUDAEnabled:   tc.WhisperXCUDA,
			EngineVersion: tc.EngineVersion,
			WorkDir:       cfg.Paths.WorkDir,
		}), nil
	case config.ProviderHTTP, "":
		svc, err := transcription.NewHTTPService(transcription.HTTPConfig{
			BaseURL:       tc.BaseURL,
			APIKey:        tc.APIKey,
			Model:         tc.Model,
			EngineVersion: tc.EngineVersion,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "transcription", "build http service", "", err)
		}
		return svc, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "select provider", fmt.Sprintf("unknown provider %q", tc.Provider), nil)
	}
}

// transcriptionRun bundles the client and cache for one command invocation.
type transcriptionRun struct {
	cfg    *config.Config
	client *transcription.Client
	cache  *transcription.Cache
	logger *slog.Logger
}

func openTranscriptionRun(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*transcriptionRun, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "check credentials", "", err)
	}
	service, err := newService(cfg)
	if err != nil {
		return nil, err
	}

	run := &transcriptionRun{cfg: cfg, logger: logger}
	opts := transcription.ClientOptions{
		Limiter:        transcription.NewLimiter(cfg.Transcription.RequestsPerMinute),
		MaxAttempts:    cfg.Transcription.MaxAttempts,
		RequestTimeout: cfg.RequestTimeout(),
		Logger:         logger,
	}
	opts.InitialBackoff, opts.MaxBackoff = cfg.Backoff()

	cache, err := transcription.OpenCache(ctx, cfg.CachePath(), logger)
	if err != nil {
		logging.WarnWithContext(logger, "transcription cache unavailable", "cache_open_failed",
			logging.String("path", cfg.CachePath()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'tandem cache clear' if the schema is outdated"),
			logging.String(logging.FieldImpact, "every segment goes to the transcription service"),
		)
	} else {
		run.cache = cache
		opts.Cache = cache
	}

	client, err := transcription.NewClient(service, opts)
	if err != nil {
		run.Close()
		return nil, err
	}
	run.client = client
	return run, nil
}

func (r *transcriptionRun) Close() {
	if r.cache != nil {
		_ = r.cache.Close()
	}
}

// resolveStream returns stream unchanged when it is explicit, otherwise probes
// the container for the dialogue track matching language. Probe failures fall
// back to ffmpeg's default stream.
func resolveStream(ctx context.Context, cfg *config.Config, logger *slog.Logger, source string, stream int, language string) int {
	if stream >= 0 {
		return stream
	}
	logger = logging.WithContext(ctx, logger)
	probe, err := media.Inspect(ctx, cfg.FFprobeBinary(), source)
	if err != nil {
		logger.Debug("audio stream probe skipped", logging.String("source", source), logging.Error(err))
		return -1
	}
	selection := media.SelectSpeechStream(probe.Streams, language)
	if selection.Index < 0 {
		return -1
	}
	reason := "highest ranked audio stream"
	if selection.LanguageMatched {
		reason = "language tag matches " + language
	}
	attrs := logging.DecisionAttrs("audio_stream", selection.Stream.Summary(), reason)
	attrs = append(attrs,
		logging.Int("stream_index", selection.Index),
		logging.Int("audio_streams", len(probe.AudioStreams())),
	)
	logger.Info("audio stream selected", logging.Args(attrs...)...)
	return selection.Index
}

// transcribeMedia extracts PCM from media and runs the pipeline over it.
func (r *transcriptionRun) transcribeMedia(ctx context.Context, source string, stream int, language string) (*transcription.PipelineResult, error) {
	segmenter, err := audio.NewSegmenter(r.cfg.Segmenter)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "segment", "build segmenter", "", err)
	}
	sampleRate := r.cfg.Segmenter.SampleRate

	if language = strings.TrimSpace(language); language == "" {
		language = r.cfg.Transcription.Language
	}

	ctx = services.WithSource(ctx, source)
	stream = resolveStream(ctx, r.cfg, r.logger, source, stream, language)
	started := time.Now()
	pcm, err := audio.ExtractPCM(ctx, r.cfg.FFmpegBinary(), source, stream, sampleRate)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.ErrorWithContext(logging.WithContext(ctx, r.logger), "audio extraction failed", "ffmpeg_extract_failed",
			logging.String("source", source),
			logging.Int("stream_index", stream),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'tandem probe' to list the audio streams or 'tandem doctor' to check ffmpeg"),
		)
		return nil, services.Wrap(services.ErrExternalTool, "extract", "ffmpeg", source, err)
	}
	logging.WithContext(ctx, r.logger).Info("audio extracted",
		logging.String("source", source),
		logging.Duration("audio_duration", audio.PCMDuration(pcm, sampleRate)),
		logging.Duration("elapsed", time.Since(started)),
	)

	pipeline := &transcription.Pipeline{
		Segmenter:     segmenter,
		Transcriber:   r.client,
		MaxConcurrent: r.cfg.Transcription.MaxConcurrent,
		Logger:        r.logger,
	}
	result, err := pipeline.Run(ctx, pcm, sampleRate, language)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, err
		}
		return result, services.Wrap(services.ErrValidation, "segment", "run pipeline", source, err)
	}
	return result, nil
}

// failuresError reports per-segment failures after the partial output has
// been written.
func failuresError(result *transcription.PipelineResult) error {
	if err := result.Err(); err != nil {
		marker := services.ErrExternalTool
		for _, f := range result.Failures {
			if transcription.IsTransient(f.Err) {
				marker = services.ErrTransient
				break
			}
		}
		return services.Wrap(marker, "transcribe", "segments", fmt.Sprintf("%d of %d segments failed", len(result.Failures), len(result.Intervals)), err)
	}
	return nil
}

// loadDocument parses a subtitle file, mapping failures onto CLI markers.
func loadDocument(path, encoding string, logger *slog.Logger) (*subtitle.Document, error) {
	doc, err := subtitle.ParseFile(path, subtitle.ParseOptions{Encoding: encoding, Logger: logger})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "parse", "open subtitle", path, err)
		}
		return nil, services.Wrap(services.ErrValidation, "parse", "read subtitle", path, err)
	}
	return doc, nil
}
