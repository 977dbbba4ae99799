// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package scheduler

import (
	"maps"
	"sync"
	"time"

	"github.com/tomtom215/mixgraph/internal/graph"
)

// Fault records why a node stopped running.
type Fault struct {
	Domain string    `json:"domain"`
	Tick   uint64    `json:"tick"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Faults is the fault registry shared by all domains.
type Faults struct {
	mu sync.RWMutex
	m  map[graph.NodeID]Fault
}

// NewFaults returns an empty registry.
func NewFaults() *Faults {
	return &Faults{m: make(map[graph.NodeID]Fault)}
}

// Mark faults id. It reports false if id was already faulted, keeping
// the first reason.
func (f *Faults) Mark(id graph.NodeID, fault Fault) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.m[id]; ok {
		return false
	}
	f.m[id] = fault
	return true
}

// Faulted reports whether id is faulted.
func (f *Faults) Faulted(id graph.NodeID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.m[id]
	return ok
}

// Get returns the fault of id.
func (f *Faults) Get(id graph.NodeID) (Fault, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fault, ok := f.m[id]
	return fault, ok
}

// Clear resets id. It reports whether id was faulted.
func (f *Faults) Clear(id graph.NodeID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.m[id]
	delete(f.m, id)
	return ok
}

// All returns a copy of the registry.
func (f *Faults) All() map[graph.NodeID]Fault {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return maps.Clone(f.m)
}
