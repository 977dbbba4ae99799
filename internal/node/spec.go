// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package node

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/media"
)

// Spec describes a node by registered kind and parameters, enough to build
// an equivalent node later.
type Spec struct {
	Kind   string             `json:"kind"`
	Params map[string]float64 `json:"params,omitempty"`
}

// Describer is implemented by nodes that Build can recreate. Nodes bound
// to runtime resources such as ingests, egresses and streams are not.
type Describer interface {
	Describe() Spec
}

// ErrUnknownKind is returned by Build for an unregistered kind.
var ErrUnknownKind = fmt.Errorf("unknown node kind: %w", apperr.ErrInvalidArgument)

// Limits on what a spec may allocate.
const (
	maxMixerInputs = 256
	maxDelayTicks  = 1 << 16
)

var builders = map[string]func(p params) (Node, error){
	"sine": func(p params) (Node, error) {
		return NewSine(p.f32("freq", 440), p.f32("amplitude", 1)), nil
	},
	"gain": func(p params) (Node, error) {
		return NewGain(p.f32("gain", 1)), nil
	},
	"pan": func(p params) (Node, error) {
		return NewPan(p.f32("position", 0)), nil
	},
	"lowpass": func(p params) (Node, error) {
		cutoff := p.get("cutoff", 0)
		if cutoff <= 0 {
			return nil, fmt.Errorf("%w: lowpass cutoff must be positive", apperr.ErrInvalidArgument)
		}
		return NewLowPass(cutoff), nil
	},
	"delay": func(p params) (Node, error) {
		kind := media.Kind(p.whole("media", int(media.Audio)))
		if kind > media.Control {
			return nil, fmt.Errorf("%w: delay media %d", apperr.ErrInvalidArgument, kind)
		}
		ticks := p.whole("ticks", 1)
		if ticks > maxDelayTicks {
			return nil, fmt.Errorf("%w: delay of %d ticks", apperr.ErrInvalidArgument, ticks)
		}
		return NewDelay(kind, ticks), nil
	},
	"audio_mixer": func(p params) (Node, error) {
		n, err := p.inputs()
		if err != nil {
			return nil, err
		}
		m := NewAudioMixer(n)
		m.SetFader(p.f32("fader", 1))
		for i := range n {
			m.gains[i].Set(p.f32(indexed("gain", i), 1))
		}
		return m, nil
	},
	"video_mixer": func(p params) (Node, error) {
		n, err := p.inputs()
		if err != nil {
			return nil, err
		}
		m := NewVideoMixer(n)
		for i := range n {
			m.priorities[i].Store(int32(p.whole(indexed("priority", i), 0)))
		}
		return m, nil
	},
}

// Kinds returns the kinds Build accepts, sorted.
func Kinds() []string {
	return slices.Sorted(maps.Keys(builders))
}

// Build creates a node from s. Missing parameters take their defaults.
func Build(s Spec) (Node, error) {
	build, ok := builders[s.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	for k, v := range s.Params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s parameter %s is not finite", apperr.ErrInvalidArgument, s.Kind, k)
		}
	}
	return build(params(s.Params))
}

type params map[string]float64

func (p params) get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

func (p params) f32(key string, def float32) float32 {
	return float32(p.get(key, float64(def)))
}

func (p params) whole(key string, def int) int {
	return int(p.get(key, float64(def)))
}

func (p params) inputs() (int, error) {
	n := p.whole("inputs", 0)
	if n < 1 || n > maxMixerInputs {
		return 0, fmt.Errorf("%w: mixer inputs %d out of range", apperr.ErrInvalidArgument, n)
	}
	return n, nil
}

func indexed(name string, i int) string { return name + strconv.Itoa(i) }

func (s *Sine) Describe() Spec {
	return Spec{Kind: "sine", Params: params{
		"freq":      float64(s.freq.Get()),
		"amplitude": float64(s.amplitude.Get()),
	}}
}

func (g *Gain) Describe() Spec {
	return Spec{Kind: "gain", Params: params{"gain": float64(g.gain.Get())}}
}

func (p *Pan) Describe() Spec {
	return Spec{Kind: "pan", Params: params{"position": float64(p.pos.Get())}}
}

func (f *LowPass) Describe() Spec {
	return Spec{Kind: "lowpass", Params: params{"cutoff": f.cutoff}}
}

func (d *Delay) Describe() Spec {
	return Spec{Kind: "delay", Params: params{"media": float64(d.kind), "ticks": float64(d.ticks)}}
}

func (m *AudioMixer) Describe() Spec {
	p := params{"inputs": float64(len(m.gains)), "fader": float64(m.fader.Get())}
	for i, g := range m.gains {
		p[indexed("gain", i)] = float64(g.Get())
	}
	return Spec{Kind: "audio_mixer", Params: p}
}

func (m *VideoMixer) Describe() Spec {
	p := params{"inputs": float64(len(m.priorities))}
	for i := range m.priorities {
		p[indexed("priority", i)] = float64(m.priorities[i].Load())
	}
	return Spec{Kind: "video_mixer", Params: p}
}
