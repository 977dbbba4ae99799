// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package persist

import (
	"context"

	"github.com/tomtom215/mixgraph/internal/metrics"
	"github.com/tomtom215/mixgraph/internal/streamstore"
)

// Chunk is one assembled unit of persistence.
type Chunk struct {
	StreamID streamstore.StreamID
	Offset   int64
	Data     []byte

	// Final marks the last chunk of a recording. Data may be empty.
	Final bool
}

// End returns the offset just past the chunk.
func (c *Chunk) End() int64 { return c.Offset + int64(len(c.Data)) }

// Queue is the bounded hand-off between recorders and the persister.
type Queue struct {
	ch chan *Chunk
}

// NewQueue creates a queue holding up to size chunks.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan *Chunk, max(size, 1))}
}

// Submit enqueues c, blocking while the queue is full.
func (q *Queue) Submit(ctx context.Context, c *Chunk) error {
	select {
	case q.ch <- c:
		metrics.PersistQueueDepth.Set(float64(len(q.ch)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of queued chunks.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }

func (q *Queue) receive(ctx context.Context) (*Chunk, error) {
	select {
	case c := <-q.ch:
		metrics.PersistQueueDepth.Set(float64(len(q.ch)))
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// tryReceive returns a queued chunk without waiting.
func (q *Queue) tryReceive() (*Chunk, bool) {
	select {
	case c := <-q.ch:
		metrics.PersistQueueDepth.Set(float64(len(q.ch)))
		return c, true
	default:
		return nil, false
	}
}
