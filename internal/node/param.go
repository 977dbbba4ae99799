// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package node

import (
	"math"
	"sync/atomic"
)

// Param is a float32 that the control plane may change while the node runs.
type Param struct {
	bits atomic.Uint32
}

// NewParam returns a Param holding v.
func NewParam(v float32) *Param {
	p := &Param{}
	p.Set(v)
	return p
}

// Get returns the current value.
func (p *Param) Get() float32 { return math.Float32frombits(p.bits.Load()) }

// Set stores v.
func (p *Param) Set(v float32) { p.bits.Store(math.Float32bits(v)) }

// DecibelToLinear converts a gain in dB to an amplitude factor.
func DecibelToLinear(db float64) float32 {
	return float32(math.Pow(10, db/20))
}
