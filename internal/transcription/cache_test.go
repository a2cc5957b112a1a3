package transcription

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := OpenCache(context.Background(), filepath.Join(t.TempDir(), "cache", "transcripts.db"), nil)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestCachePutGet(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)
	hash := HashAudio([]byte("pcm"))

	if _, ok, err := cache.Get(ctx, hash, "v1"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	segment := TranscriptSegment{Start: 1200 * time.Millisecond, End: 3400 * time.Millisecond, Text: "hola", Language: "es"}
	if err := cache.Put(ctx, hash, "v1", segment); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := cache.Get(ctx, hash, "v1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Text != "hola" || got.Language != "es" || got.Start != segment.Start || got.End != segment.End || got.SourceHash != hash {
		t.Fatalf("unexpected segment %+v", got)
	}
	if _, ok, _ := cache.Get(ctx, hash, "v2"); ok {
		t.Fatal("entries must be scoped to the engine version")
	}
}

func TestCachePutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)
	hash := HashAudio([]byte("pcm"))
	segment := TranscriptSegment{Start: 0, End: time.Second, Text: "same"}

	for i := 0; i < 3; i++ {
		if err := cache.Put(ctx, hash, "v1", segment); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}
	entries, err := cache.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "same" {
		t.Fatalf("expected one entry, got %+v", entries)
	}
}

func TestCacheConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)
	hash := HashAudio([]byte("shared"))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- cache.Put(ctx, hash, "v1", TranscriptSegment{End: time.Second, Text: "text"})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Put: %v", err)
		}
	}
	if got, ok, err := cache.Get(ctx, hash, "v1"); err != nil || !ok || got.Text != "text" {
		t.Fatalf("Get after concurrent writes = %+v %v %v", got, ok, err)
	}
}

func TestCacheStatsListPrune(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)
	for i, version := range []string{"old", "old", "new"} {
		hash := HashAudio([]byte{byte(i)})
		if err := cache.Put(ctx, hash, version, TranscriptSegment{End: time.Second, Text: version}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 2 || stats[0].EngineVersion != "new" || stats[0].Entries != 1 || stats[1].Entries != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	listed, err := cache.List(ctx, "old", 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 || listed[0].EngineVersion != "old" {
		t.Fatalf("unexpected list %+v", listed)
	}

	removed, err := cache.Prune(ctx, "new")
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if _, err := cache.Prune(ctx, " "); err == nil {
		t.Fatal("expected prune without version to fail")
	}
}

func TestCacheReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "transcripts.db")
	cache, err := OpenCache(ctx, path, nil)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	hash := HashAudio([]byte("persist"))
	if err := cache.Put(ctx, hash, "v1", TranscriptSegment{End: time.Second, Text: "kept"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_ = cache.Close()

	reopened, err := OpenCache(ctx, path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if got, ok, err := reopened.Get(ctx, hash, "v1"); err != nil || !ok || got.Text != "kept" {
		t.Fatalf("Get after reopen = %+v %v %v", got, ok, err)
	}
}

func TestCacheSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "transcripts.db")
	cache, err := OpenCache(ctx, path, nil)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	if _, err := cache.db.ExecContext(ctx, "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("update version: %v", err)
	}
	_ = cache.Close()

	if _, err := OpenCache(ctx, path, nil); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenCacheRejectsEmptyPath(t *testing.T) {
	if _, err := OpenCache(context.Background(), "", nil); !errors.Is(err, ErrCacheIO) {
		t.Fatalf("expected ErrCacheIO, got %v", err)
	}
}
