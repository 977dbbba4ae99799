// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package media

import (
	"fmt"
	"slices"
	"time"
)

// Kind is the media type carried by a port.
type Kind uint8

const (
	Audio Kind = iota
	Video
	Control
)

func (k Kind) String() string {
	switch k {
	case Audio:
		return "audio"
	case Video:
		return "video"
	case Control:
		return "control"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Frame is an RGBA image, 4 bytes per pixel, row-major.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// Event is a control message.
type Event struct {
	Name  string  `json:"name"`
	Value float64 `json:"value,omitempty"`
	Data  string  `json:"data,omitempty"`
}

// Buffer is one tick's worth of media on a connection.
type Buffer struct {
	Kind Kind

	// Timestamp is session clock time of the first sample or the frame.
	Timestamp time.Duration

	Channels int
	Samples  []float32 // interleaved, len = frames * Channels

	Frame *Frame

	Events []Event

	// Underrun marks data synthesized because a source had nothing in time.
	Underrun bool
}

// NewAudio wraps interleaved samples.
func NewAudio(ts time.Duration, channels int, samples []float32) *Buffer {
	return &Buffer{Kind: Audio, Timestamp: ts, Channels: channels, Samples: samples}
}

// Silence returns frames of zeroed audio.
func Silence(ts time.Duration, channels, frames int) *Buffer {
	return NewAudio(ts, channels, make([]float32, channels*frames))
}

// NewVideo wraps a frame.
func NewVideo(ts time.Duration, f *Frame) *Buffer {
	return &Buffer{Kind: Video, Timestamp: ts, Frame: f}
}

// Black returns an opaque black frame.
func Black(ts time.Duration, width, height int) *Buffer {
	pix := make([]byte, width*height*4)
	for i := 3; i < len(pix); i += 4 {
		pix[i] = 0xff
	}
	return NewVideo(ts, &Frame{Width: width, Height: height, Pix: pix})
}

// NewControl wraps events.
func NewControl(ts time.Duration, events ...Event) *Buffer {
	return &Buffer{Kind: Control, Timestamp: ts, Events: events}
}

// Frames returns the number of audio frames, or 0 for other kinds.
func (b *Buffer) Frames() int {
	if b == nil || b.Kind != Audio || b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	if b == nil {
		return nil
	}
	c := *b
	c.Samples = slices.Clone(b.Samples)
	c.Events = slices.Clone(b.Events)
	if b.Frame != nil {
		f := *b.Frame
		f.Pix = slices.Clone(b.Frame.Pix)
		c.Frame = &f
	}
	return &c
}
