// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package wal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/mixgraph/internal/apperr"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = fmt.Errorf("journal closed: %w", apperr.ErrClosed)

	// ErrEntryNotFound is returned by Confirm for an unknown chunk.
	ErrEntryNotFound = fmt.Errorf("journal entry: %w", apperr.ErrNotFound)

	// ErrNegativeOffset rejects records that cannot be keyed.
	ErrNegativeOffset = errors.New("journal record has negative stream or offset")
)

// Record is one journaled chunk.
type Record struct {
	StreamID  int64     `json:"stream_id"`
	Offset    int64     `json:"offset"`
	Data      []byte    `json:"data"`
	Final     bool      `json:"final"`
	CreatedAt time.Time `json:"created_at"`
}

// Journal persists chunks until they are confirmed.
type Journal interface {
	// Write durably stores r. Writing the same stream and offset twice
	// replaces the earlier record.
	Write(ctx context.Context, r *Record) error

	// Confirm drops the record at stream and offset.
	Confirm(ctx context.Context, stream, offset int64) error

	// Pending returns unconfirmed records ordered by stream and offset.
	Pending(ctx context.Context) ([]*Record, error)

	Stats() Stats
	Close() error
}

// Stats contains journal counters for monitoring.
type Stats struct {
	Pending  int64 `json:"pending"`
	Writes   int64 `json:"writes"`
	Confirms int64 `json:"confirms"`
	GCRuns   int64 `json:"gc_runs"`
}

func key(stream, offset int64) []byte {
	return fmt.Appendf(nil, "%s%016x:%016x", prefixPending, stream, offset)
}

// Nop is a journal that keeps nothing. Chunks lost in a crash stay lost.
type Nop struct{}

func (Nop) Write(context.Context, *Record) error        { return nil }
func (Nop) Confirm(context.Context, int64, int64) error { return nil }
func (Nop) Pending(context.Context) ([]*Record, error)  { return nil, nil }
func (Nop) Stats() Stats                                { return Stats{} }
func (Nop) Close() error                                { return nil }
