package chat

import (
	"sync"
	"time"
)

const (
	// cacheTTL is how long a cached response stays valid. Portfolio content
	// changes rarely, so repeated questions within a session can reuse the
	// full pipeline's answer.
	cacheTTL = 15 * time.Minute
	// cacheCapacity bounds memory; when full, the oldest entry is evicted.
	cacheCapacity = 256
)

type cacheEntry struct {
	resp     Response
	storedAt time.Time
}

// responseCache is a TTL + capacity bounded cache keyed by normalized
// query. Safe for concurrent use.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	// now is replaceable in tests.
	now func() time.Time
}

func newResponseCache() *responseCache {
	return &responseCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// cacheKey builds the cache key. Mode is part of the key: a direct answer
// cached in auto mode must never be replayed for a strict-grounding request.
func cacheKey(mode Mode, query string) string {
	norm := normalizeQuery(query)
	if norm == "" {
		return ""
	}
	return string(mode) + ":" + norm
}

// get returns the cached response for query in the given mode, if present
// and fresh.
func (c *responseCache) get(mode Mode, query string) (Response, bool) {
	key := cacheKey(mode, query)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Response{}, false
	}
	if c.now().Sub(e.storedAt) > cacheTTL {
		delete(c.entries, key)
		return Response{}, false
	}
	return e.resp, true
}

// put stores resp under the normalized query and mode, evicting the oldest
// entry when the cache is full.
func (c *responseCache) put(mode Mode, query string, resp Response) {
	key := cacheKey(mode, query)
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= cacheCapacity {
		var oldestKey string
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.storedAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.storedAt
			}
		}
		delete(c.entries, oldestKey)
	}
	c.entries[key] = cacheEntry{resp: resp, storedAt: c.now()}
}
