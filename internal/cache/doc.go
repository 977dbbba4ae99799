// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Package cache provides a generic, thread-safe LRU cache.

The stream store uses it to keep recently read chunks in memory. Committed
chunks are immutable, so entries never need invalidation; they only need to
be evicted when the cache exceeds its entry count or byte budget.

	c := cache.NewLRU[chunkKey, []byte](256, 64<<20, func(b []byte) int64 { return int64(len(b)) })
	c.Add(key, data)
	if data, ok := c.Get(key); ok { ... }

# Complexity

Get, Add and Remove are O(1). A doubly-linked list orders entries by
recency; a map indexes them by key.
*/
package cache
