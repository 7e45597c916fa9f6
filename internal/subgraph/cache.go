package subgraph

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 256

type cacheEntry struct {
	data      []byte
	fetchedAt time.Time
}

// responseCache keeps raw query results keyed by query and variables.
// Entries outlive ttl so a stale value can back a failed refresh; only the
// LRU bound evicts them.
type responseCache struct {
	ttl     time.Duration
	entries *lru.Cache[string, cacheEntry]
}

func newResponseCache(ttl time.Duration, size int) (*responseCache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &responseCache{ttl: ttl, entries: entries}, nil
}

// Get returns the entry and whether it is still within ttl.
func (c *responseCache) Get(key string, now time.Time) ([]byte, bool, bool) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false, false
	}
	fresh := c.ttl > 0 && now.Sub(entry.fetchedAt) < c.ttl
	return entry.data, true, fresh
}

func (c *responseCache) Set(key string, data []byte, now time.Time) {
	c.entries.Add(key, cacheEntry{data: data, fetchedAt: now})
}
