// Package cache provides a size-bounded LRU cache with cost-aware eviction.
package cache

import (
	"sync"
	"sync/atomic"
)

// bytesPerKB normalizes entry sizes for the eviction cost.
const bytesPerKB = 1024.0

// evictionSampleSize is how many entries from the LRU tail compete for eviction.
const evictionSampleSize = 5

// LRU caches values up to a total size. When full it evicts, among the least
// recently used entries, the one that is largest relative to how often it was
// read. Safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu          sync.Mutex
	entries     map[K]*lruEntry[K, V]
	head        *lruEntry[K, V] // Most recently used.
	tail        *lruEntry[K, V] // Least recently used.
	maxSize     int64
	currentSize int64

	hits   atomic.Int64
	misses atomic.Int64
}

type lruEntry[K comparable, V any] struct {
	key         K
	value       V
	size        int64
	accessCount int64
	prev        *lruEntry[K, V]
	next        *lruEntry[K, V]
}

// evictionCost is higher for entries worth keeping: read often, small.
func (e *lruEntry[K, V]) evictionCost() float64 {
	if e.size == 0 {
		return float64(e.accessCount)
	}

	sizeKB := max(float64(e.size)/bytesPerKB, 1)

	return float64(e.accessCount) / sizeKB
}

// NewLRU creates a cache holding at most maxSize bytes. maxSize must be positive.
func NewLRU[K comparable, V any](maxSize int64) *LRU[K, V] {
	if maxSize <= 0 {
		panic("cache: LRU size must be positive")
	}

	return &LRU[K, V]{
		entries: make(map[K]*lruEntry[K, V]),
		maxSize: maxSize,
	}
}

// Get returns the value cached under key.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		var zero V

		return zero, false
	}

	c.hits.Add(1)

	entry.accessCount++
	c.moveToFront(entry)

	return entry.value, true
}

// Put caches value under key, accounted as size bytes. Values larger than
// the whole cache are not stored. An existing entry for key is replaced.
func (c *LRU[K, V]) Put(key K, value V, size int64) {
	if size > c.maxSize || size < 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.remove(entry)
	}

	for c.currentSize+size > c.maxSize && c.tail != nil {
		c.evictLowestCost()
	}

	entry := &lruEntry[K, V]{key: key, value: value, size: size, accessCount: 1}

	c.entries[key] = entry
	c.currentSize += size
	c.addToFront(entry)
}

// Stats holds cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns hits over lookups, 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the counters.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

// Clear drops every entry. Counters are kept.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	c.head = nil
	c.tail = nil
	c.currentSize = 0
}

func (c *LRU[K, V]) moveToFront(entry *lruEntry[K, V]) {
	if entry == c.head {
		return
	}

	c.unlink(entry)
	c.addToFront(entry)
}

func (c *LRU[K, V]) addToFront(entry *lruEntry[K, V]) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRU[K, V]) unlink(entry *lruEntry[K, V]) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
}

func (c *LRU[K, V]) remove(entry *lruEntry[K, V]) {
	c.unlink(entry)
	delete(c.entries, entry.key)
	c.currentSize -= entry.size
}

// evictLowestCost evicts the cheapest of the last evictionSampleSize entries.
func (c *LRU[K, V]) evictLowestCost() {
	victim := c.tail
	lowestCost := victim.evictionCost()

	for entry, sampled := victim.prev, 1; entry != nil && sampled < evictionSampleSize; entry, sampled = entry.prev, sampled+1 {
		cost := entry.evictionCost()
		if cost < lowestCost {
			lowestCost = cost
			victim = entry
		}
	}

	c.remove(victim)
}
