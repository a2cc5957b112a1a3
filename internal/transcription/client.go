package transcription

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"tandem/internal/audio"
	"tandem/internal/logging"
)

const (
	defaultMaxAttempts    = 4
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 30 * time.Second
)

// ClientOptions configures a Client. Zero values select defaults; a nil
// Cache disables caching and a nil Limiter disables rate limiting.
type ClientOptions struct {
	Cache          Store
	Limiter        *rate.Limiter
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// ClientStats counts client activity since construction.
type ClientStats struct {
	Calls       int64
	CacheHits   int64
	CacheMisses int64
	Retries     int64
	Shared      int64
	Failures    int64
}

// Client adds caching, deduplication, rate limiting and retries to a Service.
type Client struct {
	service        Service
	cache          Store
	limiter        *rate.Limiter
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger
	group          singleflight.Group
	sleep          func(context.Context, time.Duration) error

	calls    atomic.Int64
	hits     atomic.Int64
	misses   atomic.Int64
	retries  atomic.Int64
	shared   atomic.Int64
	failures atomic.Int64
}

// NewClient wraps service with the given policies.
func NewClient(service Service, opts ClientOptions) (*Client, error) {
	if service == nil {
		return nil, errors.New("transcription client requires a service")
	}
	c := &Client{
		service:        service,
		cache:          opts.Cache,
		limiter:        opts.Limiter,
		maxAttempts:    opts.MaxAttempts,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		requestTimeout: opts.RequestTimeout,
		logger:         logging.NewComponentLogger(opts.Logger, "transcription"),
		sleep:          sleepWithContext,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.initialBackoff <= 0 {
		c.initialBackoff = defaultInitialBackoff
	}
	if c.maxBackoff <= 0 {
		c.maxBackoff = defaultMaxBackoff
	}
	if c.maxBackoff < c.initialBackoff {
		c.maxBackoff = c.initialBackoff
	}
	return c, nil
}

// NewLimiter converts a requests-per-minute budget into a token bucket. Zero
// or negative disables limiting.
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

// EngineVersion reports the wrapped service's engine version.
func (c *Client) EngineVersion() string {
	return c.service.EngineVersion()
}

// Stats returns a snapshot of the counters.
func (c *Client) Stats() ClientStats {
	return ClientStats{
		Calls:       c.calls.Load(),
		CacheHits:   c.hits.Load(),
		CacheMisses: c.misses.Load(),
		Retries:     c.retries.Load(),
		Shared:      c.shared.Load(),
		Failures:    c.failures.Load(),
	}
}

// Transcribe returns the transcript of req.Audio. Cached transcripts are
// returned without contacting the service. Concurrent calls for the same
// audio share one outbound request. A cancelled call is never cached.
func (c *Client) Transcribe(ctx context.Context, req Request) (TranscriptSegment, error) {
	c.calls.Add(1)
	if len(req.Audio) == 0 {
		c.failures.Add(1)
		return TranscriptSegment{}, &Error{Kind: Permanent, Op: "transcribe", Err: ErrEmptyAudio}
	}
	if err := ctx.Err(); err != nil {
		return TranscriptSegment{}, err
	}

	wav := audio.EncodeWAV(req.Audio, req.SampleRate)
	hash := HashAudio(wav)
	version := c.service.EngineVersion()
	logger := logging.WithContext(ctx, c.logger)

	if cached, ok := c.lookup(ctx, logger, hash, version); ok {
		c.hits.Add(1)
		logger.Debug("transcript cache lookup", logging.Args(logging.DecisionAttrs("cache_lookup", "hit", shortHash(hash))...)...)
		return withRequest(cached, req, hash), nil
	}
	c.misses.Add(1)
	logger.Debug("transcript cache lookup", logging.Args(logging.DecisionAttrs("cache_lookup", "miss", shortHash(hash))...)...)

	for {
		value, err, shared := c.group.Do(cacheKey(hash, version), func() (any, error) {
			// A flight that finished after our lookup may already have
			// written the entry.
			if cached, ok := c.lookup(ctx, logger, hash, version); ok {
				return cached, nil
			}
			return c.fetch(ctx, logger, req, wav, hash, version)
		})
		if shared {
			c.shared.Add(1)
		}
		// A follower inherits the leader's cancellation; retry on its own
		// context when that one is still live.
		if shared && isContextError(err) && ctx.Err() == nil {
			continue
		}
		if err != nil {
			c.failures.Add(1)
			return TranscriptSegment{}, err
		}
		return withRequest(value.(TranscriptSegment), req, hash), nil
	}
}

func (c *Client) lookup(ctx context.Context, logger *slog.Logger, hash, version string) (TranscriptSegment, bool) {
	if c.cache == nil {
		return TranscriptSegment{}, false
	}
	segment, ok, err := c.cache.Get(ctx, hash, version)
	if err != nil {
		logging.WarnWithContext(logger, "transcript cache read failed", "cache_read_failed",
			logging.String("content_hash", shortHash(hash)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "segment will be sent to the transcription service"),
			logging.String(logging.FieldErrorHint, "check the cache file permissions or run 'tandem cache clear'"),
		)
		return TranscriptSegment{}, false
	}
	return segment, ok
}

func (c *Client) fetch(ctx context.Context, logger *slog.Logger, req Request, wav []byte, hash, version string) (TranscriptSegment, error) {
	result, err := c.submitWithRetry(ctx, logger, wav, req.LanguageHint)
	if err != nil {
		return TranscriptSegment{}, err
	}
	if err := ctx.Err(); err != nil {
		return TranscriptSegment{}, err
	}
	segment := TranscriptSegment{
		Index:      req.Index,
		Start:      req.Start,
		End:        req.End,
		Text:       result.Text,
		Language:   result.Language,
		SourceHash: hash,
	}
	if c.cache != nil {
		if err := c.cache.Put(ctx, hash, version, segment); err != nil {
			logging.WarnWithContext(logger, "transcript cache write failed", "cache_write_failed",
				logging.String("content_hash", shortHash(hash)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "transcript returned but will be requested again next run"),
				logging.String(logging.FieldErrorHint, "check free disk space and cache file permissions"),
			)
		}
	}
	return segment, nil
}

func (c *Client) submitWithRetry(ctx context.Context, logger *slog.Logger, wav []byte, languageHint string) (Result, error) {
	for attempt := 1; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return Result{}, ctxErr
				}
				return Result{}, &Error{Kind: Transient, Op: "rate limit", Attempts: attempt, Err: err}
			}
		}

		result, err := c.submitOnce(ctx, wav, languageHint)
		if err == nil {
			if attempt > 1 {
				logger.Debug("transcription succeeded after retry", logging.Int("attempts", attempt))
			}
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}

		classified := Classify("submit", err)
		var typed *Error
		if errors.As(classified, &typed) {
			typed.Attempts = attempt
		}
		if !IsTransient(classified) || attempt >= c.maxAttempts {
			return Result{}, classified
		}

		delay := c.backoff(attempt)
		c.retries.Add(1)
		logging.WarnWithContext(logger, "transcription attempt failed; retrying",
			"transcription_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", c.maxAttempts),
			logging.Duration("backoff", delay),
			logging.Error(err),
			logging.String(logging.FieldImpact, "segment transcription delayed"),
			logging.String(logging.FieldErrorHint, "check transcription service availability and rate limits"),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return Result{}, err
		}
	}
}

func (c *Client) submitOnce(ctx context.Context, wav []byte, hint string) (Result, error) {
	if c.requestTimeout <= 0 {
		return c.service.Submit(ctx, wav, hint)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	return c.service.Submit(attemptCtx, wav, hint)
}

// backoff returns Initial * 2^(attempt-1) capped at the maximum.
func (c *Client) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		return c.maxBackoff
	}
	delay := c.initialBackoff * time.Duration(1<<uint(attempt-1))
	if delay <= 0 || delay > c.maxBackoff {
		return c.maxBackoff
	}
	return delay
}

func withRequest(segment TranscriptSegment, req Request, hash string) TranscriptSegment {
	segment.Index = req.Index
	segment.Start = req.Start
	segment.End = req.End
	segment.SourceHash = hash
	return segment
}

// isContextError matches bare cancellation, not classified attempt timeouts.
func isContextError(err error) bool {
	var classified *Error
	if errors.As(err, &classified) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
