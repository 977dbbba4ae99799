// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package streamstore

import (
	"context"
	"fmt"
	"sync"
)

// Writer buffers writes into chunkSize chunks and appends them in order.
// It is safe for concurrent use but ordering across callers is undefined.
type Writer struct {
	store     *Store
	ctx       context.Context
	id        StreamID
	chunkSize int

	mu     sync.Mutex
	buf    []byte
	closed bool
}

// NewWriter returns a Writer appending to an existing stream.
func (s *Store) NewWriter(ctx context.Context, id StreamID, chunkSize int) (*Writer, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size %d must be positive", chunkSize)
	}
	if _, err := s.Size(ctx, id); err != nil {
		return nil, err
	}
	return &Writer{
		store:     s,
		ctx:       ctx,
		id:        id,
		chunkSize: chunkSize,
		buf:       make([]byte, 0, chunkSize),
	}, nil
}

// ID returns the stream being written.
func (w *Writer) ID() StreamID { return w.id }

// Write buffers p and commits every full chunk.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrStreamComplete
	}
	written := 0
	for len(p) > 0 {
		n := min(w.chunkSize-len(w.buf), len(p))
		w.buf = append(w.buf, p[:n]...)
		p = p[n:]
		written += n
		if len(w.buf) == w.chunkSize {
			if err := w.flushLocked(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// Flush commits any buffered partial chunk.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if len(w.buf) == 0 {
		return nil
	}
	if _, err := w.store.Append(w.ctx, w.id, w.buf); err != nil {
		return err
	}
	w.buf = make([]byte, 0, w.chunkSize)
	return nil
}

// Close flushes and stops the Writer without completing the stream.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	err := w.flushLocked()
	w.closed = true
	return err
}

// Finalize flushes and marks the stream complete.
func (w *Writer) Finalize() error {
	if err := w.Close(); err != nil {
		return err
	}
	return w.store.Complete(w.ctx, w.id)
}
