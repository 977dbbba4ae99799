// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package persist

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/media"
	"github.com/tomtom215/mixgraph/internal/node"
	"github.com/tomtom215/mixgraph/internal/streamstore"
)

// ErrRecorderClosed is returned by Deliver after Close.
var ErrRecorderClosed = fmt.Errorf("recorder %w", apperr.ErrClosed)

// Recorder encodes delivered buffers into chunks of a stream.
type Recorder struct {
	stream    streamstore.StreamID
	queue     *Queue
	chunkSize int

	mu     sync.Mutex
	buf    []byte
	offset int64 // stream offset of buf[0]
	closed bool
}

var _ node.Egress = (*Recorder)(nil)

// NewRecorder records into stream starting at offset.
func NewRecorder(stream streamstore.StreamID, offset int64, queue *Queue, chunkSize int) *Recorder {
	chunkSize = max(chunkSize, 1)
	return &Recorder{
		stream:    stream,
		queue:     queue,
		chunkSize: chunkSize,
		buf:       make([]byte, 0, chunkSize),
		offset:    offset,
	}
}

// StreamID returns the stream being recorded.
func (r *Recorder) StreamID() streamstore.StreamID { return r.stream }

// Offset returns the offset the next encoded byte will have.
func (r *Recorder) Offset() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offset + int64(len(r.buf))
}

// Deliver encodes buf and submits every chunk that became full.
func (r *Recorder) Deliver(ctx context.Context, buf *media.Buffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}

	var err error
	if r.buf, err = media.EncodeBuffer(r.buf, buf); err != nil {
		return fmt.Errorf("encode buffer: %w", err)
	}
	for len(r.buf) >= r.chunkSize {
		if err := r.submit(ctx, r.chunkSize, false); err != nil {
			return err
		}
	}
	return nil
}

// Close submits the tail as the final chunk. It is idempotent.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if err := r.submit(ctx, len(r.buf), true); err != nil {
		return err
	}
	r.closed = true
	return nil
}

// submit hands the first n bytes of buf to the queue. Caller holds mu.
func (r *Recorder) submit(ctx context.Context, n int, final bool) error {
	c := &Chunk{
		StreamID: r.stream,
		Offset:   r.offset,
		Data:     append([]byte(nil), r.buf[:n]...),
		Final:    final,
	}
	if err := r.queue.Submit(ctx, c); err != nil {
		return fmt.Errorf("submit chunk at %d: %w", c.Offset, err)
	}
	r.offset += int64(n)
	r.buf = append(r.buf[:0], r.buf[n:]...)
	return nil
}
