package probe

import (
	"sync"
	"time"
)

// cacheEntry holds a cached probe attempt and its expiration time.
type cacheEntry struct {
	attempt   Attempt
	expiresAt time.Time
}

// resultCache is a thread-safe, in-memory TTL cache of probe outcomes
// keyed by candidate URL. Entries are lazily expired on access. Bulk runs
// over joint-plan members hit the same shared domain repeatedly; the
// cache keeps that to one fetch per TTL window.
type resultCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// get retrieves a cached attempt by URL. Expired entries are removed on
// access.
func (cache *resultCache) get(url string) (Attempt, bool) {
	cache.mu.RLock()
	entry, exists := cache.entries[url]
	cache.mu.RUnlock()

	if !exists {
		return Attempt{}, false
	}
	if time.Now().After(entry.expiresAt) {
		cache.mu.Lock()
		if current, stillExists := cache.entries[url]; stillExists && time.Now().After(current.expiresAt) {
			delete(cache.entries, url)
		}
		cache.mu.Unlock()
		return Attempt{}, false
	}
	return entry.attempt, true
}

func (cache *resultCache) set(url string, attempt Attempt) {
	cache.mu.Lock()
	cache.entries[url] = cacheEntry{
		attempt:   attempt,
		expiresAt: time.Now().Add(cache.ttl),
	}
	cache.mu.Unlock()
}

// clear removes all entries.
func (cache *resultCache) clear() {
	cache.mu.Lock()
	cache.entries = make(map[string]cacheEntry)
	cache.mu.Unlock()
}

// len returns the number of entries, including not-yet-collected expired
// ones.
func (cache *resultCache) len() int {
	cache.mu.RLock()
	count := len(cache.entries)
	cache.mu.RUnlock()
	return count
}
