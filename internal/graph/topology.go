// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package graph

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/tomtom215/mixgraph/internal/node"
)

// NodeID identifies a node for the lifetime of the graph.
type NodeID uint64

// Endpoint is one port of one node.
type Endpoint struct {
	Node NodeID `json:"node"`
	Port int    `json:"port"`
}

func (e Endpoint) String() string { return fmt.Sprintf("%d:%d", e.Node, e.Port) }

// Connection is a directed edge from an output port to an input port.
type Connection struct {
	From Endpoint `json:"from"`
	To   Endpoint `json:"to"`
}

// Entry is a node in the arena. Entries are immutable once published.
type Entry struct {
	ID     NodeID
	Node   node.Node
	Domain string
	Shape  node.Shape

	seq uint64
}

// IsFeedback reports whether input port p is feedback tolerant.
func (e *Entry) IsFeedback(p int) bool {
	return p >= 0 && p < len(e.Shape.Inputs) && e.Shape.Inputs[p].Feedback
}

// Topology is an immutable, validated snapshot of the graph.
type Topology struct {
	Generation uint64

	nodes   map[NodeID]*Entry
	inbound map[Endpoint]Connection
	conns   []Connection
	order   []NodeID
	byDom   map[string][]NodeID
}

func emptyTopology() *Topology {
	return &Topology{
		nodes:   map[NodeID]*Entry{},
		inbound: map[Endpoint]Connection{},
		byDom:   map[string][]NodeID{},
	}
}

func (t *Topology) clone() *Topology {
	return &Topology{
		Generation: t.Generation,
		nodes:      maps.Clone(t.nodes),
		inbound:    maps.Clone(t.inbound),
		conns:      slices.Clone(t.conns),
	}
}

// Len returns the number of nodes.
func (t *Topology) Len() int { return len(t.nodes) }

// Node returns the entry for id.
func (t *Topology) Node(id NodeID) (*Entry, bool) {
	e, ok := t.nodes[id]
	return e, ok
}

// Nodes returns all entries in insertion order.
func (t *Topology) Nodes() []*Entry {
	out := slices.Collect(maps.Values(t.nodes))
	slices.SortFunc(out, func(a, b *Entry) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

// Order returns the execution order of every node. The slice is shared
// and must not be modified.
func (t *Topology) Order() []NodeID { return t.order }

// OrderFor returns the execution order restricted to one domain. The
// slice is shared and must not be modified.
func (t *Topology) OrderFor(domain string) []NodeID { return t.byDom[domain] }

// Input returns the connection feeding input port to, if any.
func (t *Topology) Input(to Endpoint) (Connection, bool) {
	c, ok := t.inbound[to]
	return c, ok
}

// Outputs returns the connections leaving node id in connection order.
func (t *Topology) Outputs(id NodeID) []Connection {
	var out []Connection
	for _, c := range t.conns {
		if c.From.Node == id {
			out = append(out, c)
		}
	}
	return out
}

// Connections returns every connection in the order they were made.
func (t *Topology) Connections() []Connection { return slices.Clone(t.conns) }

// Degree returns the number of connections touching id.
func (t *Topology) Degree(id NodeID) int {
	n := 0
	for _, c := range t.conns {
		if c.From.Node == id || c.To.Node == id {
			n++
		}
	}
	return n
}

// sort computes the stable execution order, ignoring feedback inputs. It
// fails with ErrCycleDetected if some nodes can never become ready.
func (t *Topology) sort() error {
	pending := make(map[NodeID]int, len(t.nodes))
	next := make(map[NodeID][]NodeID, len(t.nodes))
	for _, c := range t.conns {
		if t.nodes[c.To.Node].IsFeedback(c.To.Port) {
			continue
		}
		pending[c.To.Node]++
		next[c.From.Node] = append(next[c.From.Node], c.To.Node)
	}

	var ready readyHeap
	for id, e := range t.nodes {
		if pending[id] == 0 {
			ready.Push(e)
		}
	}

	order := make([]NodeID, 0, len(t.nodes))
	for ready.Len() > 0 {
		e := ready.Pop()
		order = append(order, e.ID)
		for _, to := range next[e.ID] {
			pending[to]--
			if pending[to] == 0 {
				ready.Push(t.nodes[to])
			}
		}
	}
	if len(order) != len(t.nodes) {
		return fmt.Errorf("%w: %d nodes on a cycle", ErrCycleDetected, len(t.nodes)-len(order))
	}

	t.order = order
	t.byDom = make(map[string][]NodeID)
	for _, id := range order {
		d := t.nodes[id].Domain
		t.byDom[d] = append(t.byDom[d], id)
	}
	return nil
}
