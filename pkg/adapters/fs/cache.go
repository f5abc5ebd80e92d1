package fs

import (
	"sync"
	"time"
)

// cacheEntry is a parsed version file together with the stat data it was
// parsed from.
type cacheEntry struct {
	rec          record
	LastModified time.Time
	Size         int64
}

// cache holds parsed version files keyed by path relative to the store root.
// Entries are validated against the file's mtime and size on every hit, so a
// stale entry is never served even when the watcher is not running.
type cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

func newCache() *cache {
	return &cache{entries: make(map[string]*cacheEntry)}
}

// Get returns the entry for relPath if it matches the current stat data.
func (c *cache) Get(relPath string, mtime time.Time, size int64) (*cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[relPath]
	if !ok {
		return nil, false
	}
	if !entry.LastModified.Equal(mtime) || entry.Size != size {
		return nil, false
	}
	return entry, true
}

// Set updates an entry in the cache.
func (c *cache) Set(relPath string, entry *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[relPath] = entry
}

// Delete removes a single entry from the cache.
func (c *cache) Delete(relPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, relPath)
}

// Prune removes every entry under the given directory prefix.
func (c *cache) Prune(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for path := range c.entries {
		if path == prefix || len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '/' {
			delete(c.entries, path)
			n++
		}
	}
	return n
}

// Len returns the number of entries in the cache.
func (c *cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
