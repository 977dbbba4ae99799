// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package node

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/media"
)

// AudioMixer sums N audio inputs, each scaled by its gain, then applies the
// master fader. Inputs shorter than the tick are zero-padded and longer ones
// truncated; summation runs in port order.
type AudioMixer struct {
	gains []*Param
	fader *Param
}

// NewAudioMixer creates a mixer with n inputs at unity gain.
func NewAudioMixer(n int) *AudioMixer {
	m := &AudioMixer{gains: make([]*Param, n), fader: NewParam(1)}
	for i := range m.gains {
		m.gains[i] = NewParam(1)
	}
	return m
}

func (m *AudioMixer) Variant() Variant { return Mixer }

func (m *AudioMixer) Shape() Shape {
	in := make([]Port, len(m.gains))
	for i := range in {
		in[i] = Port{Name: fmt.Sprintf("in%d", i), Kind: media.Audio}
	}
	return Shape{Inputs: in, Outputs: single(media.Audio, "out")}
}

// SetGain sets the linear gain of input port.
func (m *AudioMixer) SetGain(port int, gain float32) error {
	if port < 0 || port >= len(m.gains) {
		return fmt.Errorf("%w: mixer has no input %d", apperr.ErrInvalidArgument, port)
	}
	m.gains[port].Set(gain)
	return nil
}

// SetFader sets the master level.
func (m *AudioMixer) SetFader(level float32) { m.fader.Set(level) }

func (m *AudioMixer) Process(clk Clock, in []*media.Buffer) ([]*media.Buffer, error) {
	n := clk.Frames * clk.Channels
	out := media.Silence(clk.Time, clk.Channels, clk.Frames)
	fader := m.fader.Get()

	for port, buf := range in {
		if buf == nil {
			continue
		}
		if buf.Channels != clk.Channels {
			return nil, fmt.Errorf("%w: mixer input %d has %d channels, domain has %d",
				apperr.ErrTypeMismatch, port, buf.Channels, clk.Channels)
		}
		k := m.gains[port].Get() * fader
		samples := buf.Samples[:min(len(buf.Samples), n)]
		for i, s := range samples {
			out.Samples[i] += s * k
		}
	}
	return []*media.Buffer{out}, nil
}

// VideoMixer composites N video inputs. Inputs are drawn in ascending
// (priority, port) order with alpha blending, so higher priority lands on
// top. Missing inputs are skipped; with no input at all the output is black.
type VideoMixer struct {
	priorities []atomic.Int32
}

// NewVideoMixer creates a mixer with n inputs at priority 0.
func NewVideoMixer(n int) *VideoMixer {
	return &VideoMixer{priorities: make([]atomic.Int32, n)}
}

func (m *VideoMixer) Variant() Variant { return Mixer }

func (m *VideoMixer) Shape() Shape {
	in := make([]Port, len(m.priorities))
	for i := range in {
		in[i] = Port{Name: fmt.Sprintf("in%d", i), Kind: media.Video}
	}
	return Shape{Inputs: in, Outputs: single(media.Video, "out")}
}

// SetPriority sets the layer of input port.
func (m *VideoMixer) SetPriority(port int, priority int32) error {
	if port < 0 || port >= len(m.priorities) {
		return fmt.Errorf("%w: mixer has no input %d", apperr.ErrInvalidArgument, port)
	}
	m.priorities[port].Store(priority)
	return nil
}

func (m *VideoMixer) Process(clk Clock, in []*media.Buffer) ([]*media.Buffer, error) {
	type layer struct {
		port     int
		priority int32
	}
	layers := make([]layer, 0, len(in))
	for port, buf := range in {
		if buf != nil && buf.Frame != nil {
			layers = append(layers, layer{port: port, priority: m.priorities[port].Load()})
		}
	}
	sort.SliceStable(layers, func(i, j int) bool {
		return layers[i].priority < layers[j].priority
	})

	out := media.Black(clk.Time, clk.Width, clk.Height)
	for _, l := range layers {
		over(out.Frame, in[l.port].Frame)
	}
	return []*media.Buffer{out}, nil
}

// over alpha-blends src onto dst anchored at the top-left corner.
func over(dst, src *media.Frame) {
	w := min(dst.Width, src.Width)
	h := min(dst.Height, src.Height)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := (y*src.Width + x) * 4
			di := (y*dst.Width + x) * 4
			a := uint32(src.Pix[si+3])
			for c := 0; c < 3; c++ {
				dst.Pix[di+c] = uint8((uint32(src.Pix[si+c])*a + uint32(dst.Pix[di+c])*(255-a)) / 255)
			}
			dst.Pix[di+3] = 0xff
		}
	}
}
