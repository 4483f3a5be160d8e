// Package cache persists enrichment bundles across retries of the same day,
// keyed by (date, sign, content-hash) so entries expire naturally when the
// source text changes.
package cache

import (
	"errors"
	"log/slog"
	"os"

	"FortuneScanner/internal/domain"
	"FortuneScanner/internal/infrastructure/fsio"
	"FortuneScanner/internal/ports"
)

// FileCache is a file-backed key-to-bundle store. The file is loaded
// wholesale at open and replaced atomically on every flush, so a crash
// leaves it in its last complete state.
type FileCache struct {
	path    string
	entries map[string]domain.ContentBundle
	logger  *slog.Logger
}

var _ ports.BundleCache = (*FileCache)(nil)

// Open loads the cache file. Absence or corruption is non-fatal and yields
// an empty cache.
func Open(path string, logger *slog.Logger) *FileCache {
	c := &FileCache{
		path:    path,
		entries: map[string]domain.ContentBundle{},
		logger:  logger,
	}

	if path == "" {
		return c
	}

	var loaded map[string]domain.ContentBundle
	if err := fsio.ReadJSON(path, &loaded); err != nil {
		if !errors.Is(err, os.ErrNotExist) && logger != nil {
			logger.Warn("cache unreadable, starting empty", "path", path, "error", err)
		}
		return c
	}
	if loaded != nil {
		c.entries = loaded
	}
	return c
}

// Get returns the cached bundle for key.
func (c *FileCache) Get(key string) (domain.ContentBundle, bool) {
	bundle, ok := c.entries[key]
	return bundle, ok
}

// Put stores the bundle in memory; call Flush to persist.
func (c *FileCache) Put(key string, bundle domain.ContentBundle) {
	c.entries[key] = bundle
}

// Len reports the number of cached bundles.
func (c *FileCache) Len() int {
	return len(c.entries)
}

// Flush writes the whole mapping atomically.
func (c *FileCache) Flush() error {
	if c.path == "" {
		return nil
	}
	if err := fsio.WriteJSONAtomic(c.path, c.entries); err != nil {
		return &domain.PersistenceError{Path: c.path, Err: err}
	}
	return nil
}
