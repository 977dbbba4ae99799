// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package node

import (
	"github.com/tomtom215/mixgraph/internal/media"
)

// EgressSink hands its input to an Egress adapter.
type EgressSink struct {
	kind   media.Kind
	egress Egress
}

// NewEgressSink creates a sink of kind delivering to e.
func NewEgressSink(kind media.Kind, e Egress) *EgressSink {
	return &EgressSink{kind: kind, egress: e}
}

func (s *EgressSink) Variant() Variant { return Sink }
func (s *EgressSink) Shape() Shape     { return Shape{Inputs: single(s.kind, "in")} }
func (s *EgressSink) Egress() Egress   { return s.egress }

// Process does nothing; delivery happens off the tick path.
func (s *EgressSink) Process(_ Clock, _ []*media.Buffer) ([]*media.Buffer, error) {
	return nil, nil
}

// StoreSink records its input into a stream through a persistence
// recorder.
type StoreSink struct {
	EgressSink
	stream int64
}

// NewStoreSink creates a sink writing to stream via rec.
func NewStoreSink(kind media.Kind, stream int64, rec Egress) *StoreSink {
	return &StoreSink{EgressSink: EgressSink{kind: kind, egress: rec}, stream: stream}
}

// StreamID returns the stream being recorded.
func (s *StoreSink) StreamID() int64 { return s.stream }
