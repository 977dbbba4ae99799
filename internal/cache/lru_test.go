// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package cache

import (
	"fmt"
	"sync"
	"testing"
)

func byteLen(b []byte) int64 { return int64(len(b)) }

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](2, 0, nil)
	c.Add("a", 1)
	c.Add("b", 2)

	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Add("c", 3) // evicts b, a was touched

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("c = %v, %v", v, ok)
	}

	hits, misses, evictions := c.Stats()
	if hits != 3 || misses != 1 || evictions != 1 {
		t.Errorf("stats = %d/%d/%d, want 3/1/1", hits, misses, evictions)
	}
}

func TestLRUWeightBudget(t *testing.T) {
	c := NewLRU[int, []byte](100, 10, byteLen)

	c.Add(1, make([]byte, 4))
	c.Add(2, make([]byte, 4))
	c.Add(3, make([]byte, 4)) // 12 > 10, evicts 1

	if c.Len() != 2 || c.Weight() != 8 {
		t.Fatalf("len=%d weight=%d, want 2/8", c.Len(), c.Weight())
	}
	if _, ok := c.Get(1); ok {
		t.Error("1 should have been evicted")
	}

	c.Add(4, make([]byte, 11)) // heavier than the budget, not cached
	if _, ok := c.Get(4); ok {
		t.Error("oversized value cached")
	}
	if c.Weight() != 8 {
		t.Errorf("weight = %d after oversized add", c.Weight())
	}
}

func TestLRUReplaceAdjustsWeight(t *testing.T) {
	c := NewLRU[string, []byte](10, 100, byteLen)
	c.Add("k", make([]byte, 10))
	c.Add("k", make([]byte, 3))

	if c.Weight() != 3 || c.Len() != 1 {
		t.Errorf("weight=%d len=%d, want 3/1", c.Weight(), c.Len())
	}
	if !c.Remove("k") || c.Weight() != 0 {
		t.Errorf("remove: weight=%d", c.Weight())
	}
	if c.Remove("k") {
		t.Error("second remove reported true")
	}
}

func TestLRUClear(t *testing.T) {
	c := NewLRU[int, int](4, 0, nil)
	for i := 0; i < 4; i++ {
		c.Add(i, i)
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
	c.Add(9, 9)
	if v, ok := c.Get(9); !ok || v != 9 {
		t.Error("cache unusable after Clear")
	}
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := NewLRU[string, int](64, 0, nil)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("%d-%d", g, i%100)
				c.Add(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 64 {
		t.Errorf("Len = %d exceeds capacity", c.Len())
	}
}
