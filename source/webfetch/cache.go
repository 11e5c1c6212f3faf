package webfetch

import (
	"sync"
	"time"
)

const (
	// DefaultCacheTTL is how long a fetched result is served from cache.
	DefaultCacheTTL = 15 * time.Minute

	// cacheSweepThreshold triggers a sweep of expired entries on Put.
	cacheSweepThreshold = 1000
)

type cacheEntry struct {
	result    ContentResult
	expiresAt time.Time
}

// ResultCache stores fetch results by URL for DefaultCacheTTL. Results are
// stored and returned by value, so callers never share state with the cache.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   Clock
}

// NewResultCache creates an empty cache.
func NewResultCache(clock Clock) *ResultCache {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ResultCache{
		entries: make(map[string]cacheEntry),
		ttl:     DefaultCacheTTL,
		clock:   clock,
	}
}

// Get returns the result for url if it has not expired. Expired entries are
// removed.
func (c *ResultCache) Get(url string) (ContentResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[url]
	if !ok {
		return ContentResult{}, false
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		delete(c.entries, url)
		return ContentResult{}, false
	}
	return entry.result, true
}

// Put stores result for url, replacing any previous entry. When the cache
// holds more than cacheSweepThreshold entries, expired ones are removed.
func (c *ResultCache) Put(url string, result ContentResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.entries[url] = cacheEntry{result: result, expiresAt: now.Add(c.ttl)}
	if len(c.entries) > cacheSweepThreshold {
		c.sweepLocked(now)
	}
}

// Sweep removes every expired entry and returns how many were removed.
func (c *ResultCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.clock.Now())
}

func (c *ResultCache) sweepLocked(now time.Time) int {
	removed := 0
	for url, entry := range c.entries {
		if !entry.expiresAt.After(now) {
			delete(c.entries, url)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet
// removed.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
