package transcription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tandem/internal/logging"
)

// CacheEntry is one stored transcript.
type CacheEntry struct {
	Hash          string
	EngineVersion string
	Start         time.Duration
	End           time.Duration
	Text          string
	Language      string
	CreatedAt     time.Time
}

// VersionStats summarizes the cache contents for one engine version.
type VersionStats struct {
	EngineVersion string
	Entries       int64
	Oldest        time.Time
	Newest        time.Time
}

// Store is the cache surface the Client depends on.
type Store interface {
	Get(ctx context.Context, hash, engineVersion string) (TranscriptSegment, bool, error)
	Put(ctx context.Context, hash, engineVersion string, segment TranscriptSegment) error
}

// Cache persists transcripts in SQLite keyed by (content hash, engine version).
type Cache struct {
	db     *sql.DB
	path   string
	keys   *keyedMutex
	logger *slog.Logger
	now    func() time.Time
}

// OpenCache opens or creates the cache database at path.
func OpenCache(ctx context.Context, path string, logger *slog.Logger) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: cache path is empty", ErrCacheIO)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache directory: %w", ErrCacheIO, err)
	}
	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheIO, err)
	}
	if err := initSchema(ctx, db, path+".lock"); err != nil {
		_ = db.Close()
		if errors.Is(err, ErrSchemaMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrCacheIO, err)
	}
	logger = logging.NewComponentLogger(logger, "transcript-cache")
	logger.Debug("transcript cache opened", logging.String("path", path))
	return &Cache{
		db:     db,
		path:   path,
		keys:   newKeyedMutex(),
		logger: logger,
		now:    time.Now,
	}, nil
}

// Path returns the database file location.
func (c *Cache) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Close releases the database handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func cacheKey(hash, engineVersion string) string {
	return engineVersion + "\x00" + hash
}

// Get returns the stored transcript for the key. Index is not persisted and is
// always zero; callers restore it from their request. A Get that races a Put
// of the same key observes the completed write.
func (c *Cache) Get(ctx context.Context, hash, engineVersion string) (TranscriptSegment, bool, error) {
	unlock := c.keys.Lock(cacheKey(hash, engineVersion))
	defer unlock()

	var (
		startMs, endMs int64
		text, language string
	)
	err := retryOnBusy(ctx, func() error {
		return c.db.QueryRowContext(ctx,
			`SELECT start_ms, end_ms, text, language FROM transcripts
			 WHERE content_hash = ? AND engine_version = ?`,
			hash, engineVersion,
		).Scan(&startMs, &endMs, &text, &language)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return TranscriptSegment{}, false, nil
	}
	if err != nil {
		return TranscriptSegment{}, false, fmt.Errorf("%w: get %s: %w", ErrCacheIO, shortHash(hash), err)
	}
	return TranscriptSegment{
		Start:      time.Duration(startMs) * time.Millisecond,
		End:        time.Duration(endMs) * time.Millisecond,
		Text:       text,
		Language:   language,
		SourceHash: hash,
	}, true, nil
}

// Put stores segment under the key, replacing any earlier row atomically.
func (c *Cache) Put(ctx context.Context, hash, engineVersion string, segment TranscriptSegment) error {
	if hash == "" || engineVersion == "" {
		return fmt.Errorf("%w: put requires hash and engine version", ErrCacheIO)
	}
	unlock := c.keys.Lock(cacheKey(hash, engineVersion))
	defer unlock()

	created := c.now().UnixMilli()
	err := retryOnBusy(ctx, func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transcripts (content_hash, engine_version, start_ms, end_ms, text, language, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(content_hash, engine_version) DO UPDATE SET
			   start_ms = excluded.start_ms,
			   end_ms = excluded.end_ms,
			   text = excluded.text,
			   language = excluded.language,
			   created_at = excluded.created_at`,
			hash, engineVersion, segment.Start.Milliseconds(), segment.End.Milliseconds(),
			segment.Text, segment.Language, created,
		); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrCacheIO, shortHash(hash), err)
	}
	return nil
}

// List returns up to limit entries, newest first. An empty engineVersion
// lists every version; limit <= 0 means no limit.
func (c *Cache) List(ctx context.Context, engineVersion string, limit int) ([]CacheEntry, error) {
	query := `SELECT content_hash, engine_version, start_ms, end_ms, text, language, created_at FROM transcripts`
	var args []any
	if engineVersion != "" {
		query += ` WHERE engine_version = ?`
		args = append(args, engineVersion)
	}
	query += ` ORDER BY created_at DESC, content_hash`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var entries []CacheEntry
	err := retryOnBusy(ctx, func() error {
		entries = entries[:0]
		rows, err := c.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				entry          CacheEntry
				startMs, endMs int64
				created        int64
			)
			if err := rows.Scan(&entry.Hash, &entry.EngineVersion, &startMs, &endMs, &entry.Text, &entry.Language, &created); err != nil {
				return err
			}
			entry.Start = time.Duration(startMs) * time.Millisecond
			entry.End = time.Duration(endMs) * time.Millisecond
			entry.CreatedAt = time.UnixMilli(created)
			entries = append(entries, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrCacheIO, err)
	}
	return entries, nil
}

// Stats counts entries per engine version, ordered by version.
func (c *Cache) Stats(ctx context.Context) ([]VersionStats, error) {
	var stats []VersionStats
	err := retryOnBusy(ctx, func() error {
		stats = stats[:0]
		rows, err := c.db.QueryContext(ctx,
			`SELECT engine_version, COUNT(1), MIN(created_at), MAX(created_at)
			 FROM transcripts GROUP BY engine_version ORDER BY engine_version`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				entry          VersionStats
				oldest, newest int64
			)
			if err := rows.Scan(&entry.EngineVersion, &entry.Entries, &oldest, &newest); err != nil {
				return err
			}
			entry.Oldest = time.UnixMilli(oldest)
			entry.Newest = time.UnixMilli(newest)
			stats = append(stats, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: stats: %w", ErrCacheIO, err)
	}
	return stats, nil
}

// Prune deletes every entry whose engine version differs from keepVersion and
// returns the number of rows removed.
func (c *Cache) Prune(ctx context.Context, keepVersion string) (int64, error) {
	if strings.TrimSpace(keepVersion) == "" {
		return 0, fmt.Errorf("%w: prune requires the engine version to keep", ErrCacheIO)
	}
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := c.db.ExecContext(ctx, `DELETE FROM transcripts WHERE engine_version <> ?`, keepVersion)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: prune: %w", ErrCacheIO, err)
	}
	if removed > 0 {
		c.logger.Info("transcript cache pruned",
			logging.String(logging.FieldEventType, "cache_pruned"),
			logging.String("kept_engine_version", keepVersion),
			logging.Int64("removed", removed),
		)
	}
	return removed, nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
