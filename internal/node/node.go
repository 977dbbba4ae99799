// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/mixgraph/internal/media"
)

// Variant is the closed set of node roles.
type Variant uint8

const (
	Source Variant = iota
	Sink
	Transform
	Mixer
)

func (v Variant) String() string {
	switch v {
	case Source:
		return "source"
	case Sink:
		return "sink"
	case Transform:
		return "transform"
	case Mixer:
		return "mixer"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// Port describes one input or output.
type Port struct {
	Name string
	Kind media.Kind

	// Feedback marks an input that may close a cycle. Only valid on
	// Delayed nodes with positive latency.
	Feedback bool
}

// Shape is a node's fixed port layout.
type Shape struct {
	Inputs  []Port
	Outputs []Port
}

// Clock describes the tick being processed.
type Clock struct {
	Domain string
	Tick   uint64

	// Time is the ideal session clock time of the tick start.
	Time time.Duration
	// Wall is the session clock reading when the tick began executing.
	Wall time.Duration

	Interval  time.Duration
	Tolerance time.Duration

	Frames     int
	SampleRate int
	Channels   int
	Width      int
	Height     int
}

// Node is a unit of media processing.
type Node interface {
	Variant() Variant
	Shape() Shape

	// Process consumes in (indexed by input port, nil when unconnected or
	// empty this tick) and returns one buffer per output port.
	Process(clk Clock, in []*media.Buffer) ([]*media.Buffer, error)
}

// Puller is implemented by sources that fetch data before the tick.
// Pull must return within the clock tolerance.
type Puller interface {
	Pull(ctx context.Context, clk Clock) (underrun bool, err error)
}

// SinkNode is implemented by sinks. The scheduler delivers the sink's
// first input to Egress from a separate worker.
type SinkNode interface {
	Egress() Egress
}

// Delayed is implemented by nodes whose output lags input by a fixed
// number of ticks.
type Delayed interface {
	Latency() int
}

// Closer is implemented by nodes holding resources.
type Closer interface {
	Close() error
}

// ErrUnavailable is returned by an Ingest with no data yet.
var ErrUnavailable = errors.New("ingest data unavailable")

// Ingest produces media for a source. Next returns ErrUnavailable when no
// data is ready and io.EOF at end of stream.
type Ingest interface {
	Next(ctx context.Context) (*media.Buffer, error)
}

// Egress consumes media from a sink in delivery order.
type Egress interface {
	Deliver(ctx context.Context, buf *media.Buffer) error
	Close(ctx context.Context) error
}

// ProcessSafe runs n.Process and converts a panic into an error.
func ProcessSafe(n Node, clk Clock, in []*media.Buffer) (out []*media.Buffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("node panicked: %v", r)
		}
	}()
	return n.Process(clk, in)
}

func single(kind media.Kind, name string) []Port {
	return []Port{{Name: name, Kind: kind}}
}
