// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package node

import (
	"fmt"
	"math"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/media"
)

var audioPort = single(media.Audio, "in")

func audioShape() Shape {
	return Shape{Inputs: audioPort, Outputs: single(media.Audio, "out")}
}

// mapSamples returns a copy of in with fn applied to every sample.
func mapSamples(in *media.Buffer, fn func(i int, s float32) float32) *media.Buffer {
	out := *in
	out.Samples = make([]float32, len(in.Samples))
	for i, s := range in.Samples {
		out.Samples[i] = fn(i, s)
	}
	return &out
}

// Gain scales audio by a linear factor.
type Gain struct {
	gain *Param
}

// NewGain creates an amplifier.
func NewGain(gain float32) *Gain { return &Gain{gain: NewParam(gain)} }

func (g *Gain) Variant() Variant { return Transform }
func (g *Gain) Shape() Shape     { return audioShape() }

// SetGain changes the factor for subsequent ticks.
func (g *Gain) SetGain(v float32) { g.gain.Set(v) }

func (g *Gain) Process(_ Clock, in []*media.Buffer) ([]*media.Buffer, error) {
	if in[0] == nil {
		return []*media.Buffer{nil}, nil
	}
	k := g.gain.Get()
	return []*media.Buffer{mapSamples(in[0], func(_ int, s float32) float32 { return s * k })}, nil
}

// Pan positions stereo audio with a constant-power law. Position ranges
// from -1 (left) to 1 (right).
type Pan struct {
	pos *Param
}

// NewPan creates a panner at pos.
func NewPan(pos float32) *Pan { return &Pan{pos: NewParam(pos)} }

func (p *Pan) Variant() Variant { return Transform }
func (p *Pan) Shape() Shape     { return audioShape() }

// SetPosition moves the panner.
func (p *Pan) SetPosition(pos float32) { p.pos.Set(pos) }

func (p *Pan) Process(_ Clock, in []*media.Buffer) ([]*media.Buffer, error) {
	if in[0] == nil {
		return []*media.Buffer{nil}, nil
	}
	if in[0].Channels != 2 {
		return nil, fmt.Errorf("%w: pan needs stereo, got %d channels", apperr.ErrTypeMismatch, in[0].Channels)
	}
	pos := math.Max(-1, math.Min(1, float64(p.pos.Get())))
	theta := (pos + 1) * math.Pi / 4
	gains := [2]float32{float32(math.Cos(theta)), float32(math.Sin(theta))}
	return []*media.Buffer{mapSamples(in[0], func(i int, s float32) float32 { return s * gains[i%2] })}, nil
}

// LowPass is a one-pole low-pass filter with per-channel state.
type LowPass struct {
	cutoff float64
	alpha  float32
	rate   int
	state  []float32
}

// NewLowPass creates a filter with cutoff in Hz.
func NewLowPass(cutoff float64) *LowPass { return &LowPass{cutoff: cutoff} }

func (f *LowPass) Variant() Variant { return Transform }
func (f *LowPass) Shape() Shape     { return audioShape() }

func (f *LowPass) Process(clk Clock, in []*media.Buffer) ([]*media.Buffer, error) {
	if in[0] == nil {
		return []*media.Buffer{nil}, nil
	}
	if f.rate != clk.SampleRate {
		f.rate = clk.SampleRate
		f.alpha = float32(1 - math.Exp(-2*math.Pi*f.cutoff/float64(clk.SampleRate)))
	}
	ch := in[0].Channels
	if len(f.state) != ch {
		f.state = make([]float32, ch)
	}
	return []*media.Buffer{mapSamples(in[0], func(i int, s float32) float32 {
		y := &f.state[i%ch]
		*y += f.alpha * (s - *y)
		return *y
	})}, nil
}

// Delay outputs its input a fixed number of ticks later. Its input is
// feedback tolerant, so it may close a cycle in the graph.
type Delay struct {
	kind  media.Kind
	ring  []*media.Buffer
	head  int
	ticks int
}

// NewDelay creates a delay of ticks (at least 1).
func NewDelay(kind media.Kind, ticks int) *Delay {
	ticks = max(ticks, 1)
	return &Delay{kind: kind, ring: make([]*media.Buffer, ticks), ticks: ticks}
}

func (d *Delay) Variant() Variant { return Transform }
func (d *Delay) Latency() int     { return d.ticks }

func (d *Delay) Shape() Shape {
	return Shape{
		Inputs:  []Port{{Name: "in", Kind: d.kind, Feedback: true}},
		Outputs: single(d.kind, "out"),
	}
}

func (d *Delay) Process(clk Clock, in []*media.Buffer) ([]*media.Buffer, error) {
	out := d.ring[d.head]
	if out != nil {
		out = out.Clone()
		out.Timestamp = clk.Time
	} else if d.kind == media.Audio {
		out = media.Silence(clk.Time, clk.Channels, clk.Frames)
	}
	d.ring[d.head] = in[0]
	d.head = (d.head + 1) % d.ticks
	return []*media.Buffer{out}, nil
}

// Func wraps an opaque buffer transformation such as a codec.
type Func struct {
	name    string
	in, out media.Kind
	fn      func(clk Clock, buf *media.Buffer) (*media.Buffer, error)
}

// NewFunc creates a transform from in to out kinds. fn is not called for
// ticks without input.
func NewFunc(name string, in, out media.Kind, fn func(clk Clock, buf *media.Buffer) (*media.Buffer, error)) *Func {
	return &Func{name: name, in: in, out: out, fn: fn}
}

func (f *Func) Variant() Variant { return Transform }
func (f *Func) Name() string     { return f.name }

func (f *Func) Shape() Shape {
	return Shape{Inputs: single(f.in, "in"), Outputs: single(f.out, "out")}
}

func (f *Func) Process(clk Clock, in []*media.Buffer) ([]*media.Buffer, error) {
	if in[0] == nil {
		return []*media.Buffer{nil}, nil
	}
	out, err := f.fn(clk, in[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}
	return []*media.Buffer{out}, nil
}
