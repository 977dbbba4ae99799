// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/mixgraph/internal/graph"
	"github.com/tomtom215/mixgraph/internal/media"
	"github.com/tomtom215/mixgraph/internal/metrics"
)

// Bridge carries buffers across one connection between two domains. It has
// exactly one producer and one consumer loop.
type Bridge struct {
	from, to string
	ch       chan *media.Buffer

	// consumer side
	pending []*media.Buffer
	last    *media.Buffer

	overwrites atomic.Uint64
}

func newBridge(from, to string, capacity int) *Bridge {
	return &Bridge{from: from, to: to, ch: make(chan *media.Buffer, capacity)}
}

// Publish hands buf to the consumer, dropping the oldest buffer when full.
func (b *Bridge) Publish(buf *media.Buffer) {
	for {
		select {
		case b.ch <- buf:
			return
		default:
		}
		select {
		case <-b.ch:
			b.overwrite()
		default:
		}
	}
}

// Take returns the newest buffer stamped at or before at. Later buffers
// stay queued for future ticks. Video holds its last frame when nothing
// new is due; other kinds yield nil.
func (b *Bridge) Take(at time.Duration) *media.Buffer {
drain:
	for {
		select {
		case buf := <-b.ch:
			b.pending = append(b.pending, buf)
		default:
			break drain
		}
	}
	for len(b.pending) > cap(b.ch) {
		b.pending = b.pending[1:]
		b.overwrite()
	}

	due := -1
	for i, buf := range b.pending {
		if buf.Timestamp > at {
			break
		}
		due = i
	}
	if due < 0 {
		if b.last != nil && b.last.Kind == media.Video {
			return b.last
		}
		return nil
	}
	buf := b.pending[due]
	b.pending = append(b.pending[:0], b.pending[due+1:]...)
	b.last = buf
	return buf
}

// Overwrites returns the number of buffers dropped unconsumed.
func (b *Bridge) Overwrites() uint64 { return b.overwrites.Load() }

func (b *Bridge) overwrite() {
	b.overwrites.Add(1)
	metrics.BridgeOverwrites.WithLabelValues(b.from, b.to).Inc()
}

// Bridges holds the bridge of every cross-domain connection.
type Bridges struct {
	mu       sync.Mutex
	capacity int
	m        map[graph.Connection]*Bridge
}

// NewBridges creates a registry whose bridges hold capacity buffers.
func NewBridges(capacity int) *Bridges {
	return &Bridges{capacity: max(capacity, 1), m: make(map[graph.Connection]*Bridge)}
}

// For returns the bridge of c, creating it on first use.
func (r *Bridges) For(c graph.Connection, from, to string) *Bridge {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.m[c]
	if !ok {
		b = newBridge(from, to, r.capacity)
		r.m[c] = b
	}
	return b
}

// Prune drops bridges whose connection is not in topo.
func (r *Bridges) Prune(topo *graph.Topology) {
	live := make(map[graph.Connection]struct{})
	for _, c := range topo.Connections() {
		live[c] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.m {
		if _, ok := live[c]; !ok {
			delete(r.m, c)
		}
	}
}

// Len returns the number of live bridges.
func (r *Bridges) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
