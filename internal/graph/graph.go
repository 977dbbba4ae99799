// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package graph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tomtom215/mixgraph/internal/logging"
	"github.com/tomtom215/mixgraph/internal/metrics"
	"github.com/tomtom215/mixgraph/internal/node"
)

var tracer = otel.Tracer("github.com/tomtom215/mixgraph/internal/graph")

// Graph is the mutable node graph. Mutations are serialized; Snapshot is
// lock-free.
type Graph struct {
	mu      sync.Mutex
	domains map[string]struct{}
	nextID  NodeID
	nextSeq uint64

	current atomic.Pointer[Topology]
}

// New creates an empty graph whose nodes may belong to domains.
func New(domains ...string) *Graph {
	g := &Graph{domains: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		g.domains[d] = struct{}{}
	}
	g.current.Store(emptyTopology())
	return g
}

// Snapshot returns the current topology.
func (g *Graph) Snapshot() *Topology { return g.current.Load() }

// Node returns the entry for id in the current topology.
func (g *Graph) Node(id NodeID) (*Entry, bool) { return g.Snapshot().Node(id) }

// AddNode places n in domain and returns its id.
func (g *Graph) AddNode(ctx context.Context, n node.Node, domain string) (NodeID, error) {
	var id NodeID
	err := g.mutate(ctx, "add_node", func(t *Topology) error {
		if _, ok := g.domains[domain]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
		}
		shape := n.Shape()
		for p, in := range shape.Inputs {
			if !in.Feedback {
				continue
			}
			if d, ok := n.(node.Delayed); !ok || d.Latency() <= 0 {
				return fmt.Errorf("%w: input %d", ErrInvalidFeedback, p)
			}
		}

		g.nextID++
		g.nextSeq++
		id = g.nextID
		t.nodes[id] = &Entry{ID: id, Node: n, Domain: domain, Shape: shape, seq: g.nextSeq}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log := logging.ForNode(domain, uint64(id))
	log.Debug().Str("variant", n.Variant().String()).Msg("Node added")
	return id, nil
}

// RemoveNode removes a node without connections and returns it so the
// caller can release its resources.
func (g *Graph) RemoveNode(ctx context.Context, id NodeID) (node.Node, error) {
	var removed node.Node
	err := g.mutate(ctx, "remove_node", func(t *Topology) error {
		e, ok := t.nodes[id]
		if !ok {
			return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
		}
		if n := t.Degree(id); n > 0 {
			return fmt.Errorf("%w: node %d has %d", ErrNodeConnected, id, n)
		}
		delete(t.nodes, id)
		removed = e.Node
		return nil
	})
	return removed, err
}

// Connect adds an edge from an output port to an input port.
func (g *Graph) Connect(ctx context.Context, from, to Endpoint) error {
	return g.mutate(ctx, "connect", func(t *Topology) error {
		src, ok := t.nodes[from.Node]
		if !ok {
			return fmt.Errorf("%w: %d", ErrNodeNotFound, from.Node)
		}
		dst, ok := t.nodes[to.Node]
		if !ok {
			return fmt.Errorf("%w: %d", ErrNodeNotFound, to.Node)
		}
		if from.Port < 0 || from.Port >= len(src.Shape.Outputs) {
			return fmt.Errorf("%w: output %s", ErrPortNotFound, from)
		}
		if to.Port < 0 || to.Port >= len(dst.Shape.Inputs) {
			return fmt.Errorf("%w: input %s", ErrPortNotFound, to)
		}
		if sk, dk := src.Shape.Outputs[from.Port].Kind, dst.Shape.Inputs[to.Port].Kind; sk != dk {
			return fmt.Errorf("%w: %s output %s to %s input %s", ErrTypeMismatch, sk, from, dk, to)
		}
		if c, ok := t.inbound[to]; ok {
			return fmt.Errorf("%w: %s already fed by %s", ErrPortOccupied, to, c.From)
		}

		c := Connection{From: from, To: to}
		t.inbound[to] = c
		t.conns = append(t.conns, c)
		return nil
	})
}

// Disconnect removes an existing edge.
func (g *Graph) Disconnect(ctx context.Context, from, to Endpoint) error {
	return g.mutate(ctx, "disconnect", func(t *Topology) error {
		c, ok := t.inbound[to]
		if !ok || c.From != from {
			return fmt.Errorf("%w: %s -> %s", ErrConnectionNotFound, from, to)
		}
		delete(t.inbound, to)
		for i, existing := range t.conns {
			if existing == c {
				t.conns = append(t.conns[:i], t.conns[i+1:]...)
				break
			}
		}
		return nil
	})
}

// mutate applies fn to a copy of the current topology and publishes it if
// the copy still sorts.
func (g *Graph) mutate(ctx context.Context, op string, fn func(t *Topology) error) (err error) {
	_, span := tracer.Start(ctx, "graph."+op)
	defer func() {
		metrics.RecordGraphMutation(op, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.current.Load().clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := next.sort(); err != nil {
		return err
	}
	next.Generation++
	g.current.Store(next)

	span.SetAttributes(
		attribute.Int64("generation", int64(next.Generation)),
		attribute.Int("nodes", next.Len()),
	)
	return nil
}
