package cache

import (
	"os"
	"path/filepath"
	"testing"

	"FortuneScanner/internal/domain"
)

func sampleBundle() domain.ContentBundle {
	return domain.FallbackBundle(domain.DefaultScores())
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	t.Parallel()

	c := Open(filepath.Join(t.TempDir(), "cache.json"), nil)
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}
}

func TestOpenCorruptFileStartsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	c := Open(path, nil)
	if c.Len() != 0 {
		t.Fatalf("corrupt cache not treated as empty")
	}
}

func TestPutFlushReopenRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	key := domain.CacheKey("2026-08-25", "aries", "いい一日")

	c := Open(path, nil)
	c.Put(key, sampleBundle())
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reopened := Open(path, nil)
	bundle, ok := reopened.Get(key)
	if !ok {
		t.Fatalf("entry lost across reopen")
	}
	if len(bundle.AI.Cards) != 5 {
		t.Fatalf("bundle content lost: %+v", bundle)
	}

	if _, ok := reopened.Get(domain.CacheKey("2026-08-25", "aries", "別の文")); ok {
		t.Fatalf("changed source text must miss the cache")
	}
}

func TestFlushWithoutPathIsNoop(t *testing.T) {
	t.Parallel()

	c := Open("", nil)
	c.Put("k", sampleBundle())
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush without path: %v", err)
	}
}
