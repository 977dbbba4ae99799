// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package engine

import (
	"github.com/tomtom215/mixgraph/internal/graph"
	"github.com/tomtom215/mixgraph/internal/scheduler"
)

// NodeStatus describes one node.
type NodeStatus struct {
	ID      graph.NodeID     `json:"id"`
	Variant string           `json:"variant"`
	Domain  string           `json:"domain"`
	Inputs  int              `json:"inputs"`
	Outputs int              `json:"outputs"`
	Faulted bool             `json:"faulted"`
	Fault   *scheduler.Fault `json:"fault,omitempty"`
}

// QueueStatus is the fill level of the persistence queue.
type QueueStatus struct {
	Depth    int `json:"depth"`
	Capacity int `json:"capacity"`
}

// Status is a point-in-time view of the engine for the control plane.
type Status struct {
	Generation   uint64                   `json:"generation"`
	Domains      []scheduler.DomainStatus `json:"domains"`
	Nodes        []NodeStatus             `json:"nodes"`
	Connections  int                      `json:"connections"`
	PersistQueue QueueStatus              `json:"persist_queue"`
}

// Status reads the current topology and domain counters. It does not go
// through the command queue.
func (e *Engine) Status() Status {
	topo := e.graph.Snapshot()
	st := Status{
		Generation:  topo.Generation,
		Connections: len(topo.Connections()),
	}
	for _, d := range e.Domains() {
		st.Domains = append(st.Domains, d.Status())
	}
	for _, n := range topo.Nodes() {
		ns := NodeStatus{
			ID:      n.ID,
			Variant: n.Node.Variant().String(),
			Domain:  n.Domain,
			Inputs:  len(n.Shape.Inputs),
			Outputs: len(n.Shape.Outputs),
		}
		if f, ok := e.faults.Get(n.ID); ok {
			ns.Faulted = true
			ns.Fault = &f
		}
		st.Nodes = append(st.Nodes, ns)
	}
	if q := e.deps.Queue; q != nil {
		st.PersistQueue.Depth = q.Len()
		st.PersistQueue.Capacity = q.Cap()
	}
	return st
}
