// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package streamstore

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Reader reads a stream that may still be growing.
//
// At the committed end of a complete stream Read returns io.EOF. On a live
// stream it returns what is available, and ErrOutOfRange once nothing is.
type Reader struct {
	store *Store
	ctx   context.Context
	id    StreamID
	pos   int64
}

// Open returns a Reader positioned at offset 0.
func (s *Store) Open(ctx context.Context, id StreamID) (*Reader, error) {
	if _, err := s.Size(ctx, id); err != nil {
		return nil, err
	}
	return &Reader{store: s, ctx: ctx, id: id}, nil
}

// Size returns the current committed size.
func (r *Reader) Size() (int64, error) {
	return r.store.Size(r.ctx, r.id)
}

// ReadAt reads len(p) bytes at off. A short read returns the available bytes
// with io.EOF on a complete stream or ErrOutOfRange on a live one.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrOutOfRange, off)
	}
	size, complete, err := streamState(r.ctx, r.store.db.Conn(), r.id)
	if err != nil {
		return 0, err
	}
	if off >= size {
		return 0, r.endError(complete)
	}
	n := min(int64(len(p)), size-off)
	data, err := r.store.Read(r.ctx, r.id, off, n)
	if err != nil {
		return 0, err
	}
	copy(p, data)
	if int(n) < len(p) {
		return int(n), r.endError(complete)
	}
	return int(n), nil
}

// Read implements io.Reader. A partial read on a live stream returns a nil
// error so callers can poll again.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := r.ReadAt(p, r.pos)
	r.pos += int64(n)
	if n > 0 && errors.Is(err, ErrOutOfRange) {
		return n, nil
	}
	return n, err
}

// Seek implements io.Seeker. io.SeekEnd is relative to the committed size.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = r.pos
	case io.SeekEnd:
		size, err := r.Size()
		if err != nil {
			return 0, err
		}
		base = size
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	pos := base + offset
	if pos < 0 {
		return 0, fmt.Errorf("%w: seek to %d", ErrOutOfRange, pos)
	}
	r.pos = pos
	return pos, nil
}

func (r *Reader) endError(complete bool) error {
	if complete {
		return io.EOF
	}
	return fmt.Errorf("%w: stream %d has no more committed bytes", ErrOutOfRange, r.id)
}
