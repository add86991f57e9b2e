package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 200

// Key derives the cache key for a document. Collisions are not detected.
func Key(text string) uint64 {
	return xxhash.Sum64String(text)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	Capacity  int
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// RenderCache is a strict LRU cache from document key to rendered output.
// Counters belong to the instance.
type RenderCache struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[uint64, string]
	capacity int

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a render cache holding at most capacity entries.
func New(capacity int) *RenderCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	// NewLRU only fails for a non-positive size.
	lru, _ := simplelru.NewLRU[uint64, string](capacity, nil)
	return &RenderCache{
		lru:      lru,
		capacity: capacity,
	}
}

// Get returns the cached output for key and promotes it to most recently used.
func (c *RenderCache) Get(key uint64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Set stores output under key, evicting the least recently used entry when full.
func (c *RenderCache) Set(key uint64, output string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru.Add(key, output) {
		c.evictions++
	}
}

// Has reports whether key is cached without touching recency or counters.
func (c *RenderCache) Has(key uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Contains(key)
}

// Remove drops key from the cache.
func (c *RenderCache) Remove(key uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(key)
}

// Clear removes every entry. Counters are kept.
func (c *RenderCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len returns the number of cached entries.
func (c *RenderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Capacity returns the maximum number of entries.
func (c *RenderCache) Capacity() int {
	return c.capacity
}

// Stats returns a snapshot of the counters.
func (c *RenderCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.lru.Len(),
		Capacity:  c.capacity,
	}
}

// ResetStats zeroes the hit, miss and eviction counters.
func (c *RenderCache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits, c.misses, c.evictions = 0, 0, 0
}
