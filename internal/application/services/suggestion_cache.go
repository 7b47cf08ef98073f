package services

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/carpoolapp/backend/internal/domain/entities"
)

type cacheEntry struct {
	results  []entities.LocationSuggestion
	storedAt time.Time
}

// suggestionCache is a bounded, TTL-checked map of normalized query to results.
// Reads use Peek so the LRU order is never touched by a hit: the list stays in insertion
// order and eviction always drops the oldest inserted key.
type suggestionCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries *simplelru.LRU[string, cacheEntry]
}

func newSuggestionCache(size int, ttl time.Duration, now func() time.Time) (*suggestionCache, error) {
	entries, err := simplelru.NewLRU[string, cacheEntry](size, nil)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &suggestionCache{ttl: ttl, now: now, entries: entries}, nil
}

// get returns the cached results for key unless the entry is missing or at least ttl old.
func (c *suggestionCache) get(key string) ([]entities.LocationSuggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Peek(key)
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.entries.Remove(key)
		return nil, false
	}
	return entry.results, true
}

// putAt stores results fetched at storedAt and reports whether the oldest entry was evicted
// to make room. Storing an existing key counts as a fresh insertion. Results already older
// than ttl are not stored.
func (c *suggestionCache) putAt(key string, results []entities.LocationSuggestion, storedAt time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Remove(key)
	if c.now().Sub(storedAt) >= c.ttl {
		return false
	}
	return c.entries.Add(key, cacheEntry{results: results, storedAt: storedAt})
}
