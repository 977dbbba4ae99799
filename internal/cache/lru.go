// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package cache

import "sync"

type lruEntry[K comparable, V any] struct {
	key    K
	value  V
	weight int64
	prev   *lruEntry[K, V]
	next   *lruEntry[K, V]
}

// LRU is a Least Recently Used cache bounded by entry count and, optionally,
// by total weight.
type LRU[K comparable, V any] struct {
	mu sync.Mutex

	capacity  int
	maxWeight int64
	weigh     func(V) int64
	weight    int64

	items map[K]*lruEntry[K, V]

	// head.next is the most recently used, tail.prev the least
	head *lruEntry[K, V]
	tail *lruEntry[K, V]

	hits      int64
	misses    int64
	evictions int64
}

// NewLRU creates a cache holding at most capacity entries. When maxWeight > 0
// and weigh is non-nil, entries are also evicted until the summed weight fits.
func NewLRU[K comparable, V any](capacity int, maxWeight int64, weigh func(V) int64) *LRU[K, V] {
	if capacity <= 0 {
		capacity = 1024
	}
	c := &LRU[K, V]{
		capacity:  capacity,
		maxWeight: maxWeight,
		weigh:     weigh,
		items:     make(map[K]*lruEntry[K, V], capacity),
		head:      &lruEntry[K, V]{},
		tail:      &lruEntry[K, V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.moveToFront(entry)
		c.hits++
		return entry.value, true
	}
	c.misses++
	var zero V
	return zero, false
}

// Add inserts or replaces key. A single value heavier than the whole budget
// is not cached.
func (c *LRU[K, V]) Add(key K, value V) {
	var w int64
	if c.weigh != nil {
		w = c.weigh(value)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxWeight > 0 && w > c.maxWeight {
		if entry, ok := c.items[key]; ok {
			c.removeEntry(entry)
		}
		return
	}

	if entry, ok := c.items[key]; ok {
		c.weight += w - entry.weight
		entry.value = value
		entry.weight = w
		c.moveToFront(entry)
	} else {
		entry := &lruEntry[K, V]{key: key, value: value, weight: w}
		c.addToFront(entry)
		c.items[key] = entry
		c.weight += w
	}

	for len(c.items) > c.capacity || (c.maxWeight > 0 && c.weight > c.maxWeight) {
		c.evictOldest()
	}
}

// Remove deletes key. It reports whether the key was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Len returns the current number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Weight returns the summed weight of all entries.
func (c *LRU[K, V]) Weight() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

// Clear removes all entries. Statistics are kept.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*lruEntry[K, V], c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
	c.weight = 0
}

// Stats returns hit, miss and eviction counts.
func (c *LRU[K, V]) Stats() (hits, misses, evictions int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evictions
}

// Internal methods (must be called with lock held)

func (c *LRU[K, V]) addToFront(entry *lruEntry[K, V]) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRU[K, V]) moveToFront(entry *lruEntry[K, V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *LRU[K, V]) removeEntry(entry *lruEntry[K, V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
	c.weight -= entry.weight
}

func (c *LRU[K, V]) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
	c.evictions++
}
