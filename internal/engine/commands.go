// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package engine

import (
	"context"
	"fmt"

	"github.com/tomtom215/mixgraph/internal/graph"
	"github.com/tomtom215/mixgraph/internal/node"
	"github.com/tomtom215/mixgraph/internal/scheduler"
)

// AddNode adds n to domain and returns its id.
func (e *Engine) AddNode(ctx context.Context, n node.Node, domain string) (graph.NodeID, error) {
	var id graph.NodeID
	err := e.submit(ctx, "add_node", func(ctx context.Context) error {
		var err error
		id, err = e.graph.AddNode(ctx, n, domain)
		if err == nil {
			e.graphChanged("add_node")
		}
		return err
	})
	return id, err
}

// RemoveNode removes an unconnected node. Its resources are released by
// its domain at the next tick boundary; a removed sink's queue is flushed
// and its egress closed the same way.
func (e *Engine) RemoveNode(ctx context.Context, id graph.NodeID) error {
	return e.submit(ctx, "remove_node", func(ctx context.Context) error {
		var domain string
		if entry, ok := e.graph.Snapshot().Node(id); ok {
			domain = entry.Domain
		}
		n, err := e.graph.RemoveNode(ctx, id)
		if err != nil {
			return err
		}
		e.faults.Clear(id)
		if c, ok := n.(node.Closer); ok {
			if d, ok := e.domains[domain]; ok {
				d.Retire(id, c)
			} else if err := c.Close(); err != nil {
				e.log.Warn().Err(err).Uint64("node_id", uint64(id)).Msg("Node close failed")
			}
		}
		e.graphChanged("remove_node")
		return nil
	})
}

// Connect links an output port to an input port.
func (e *Engine) Connect(ctx context.Context, from, to graph.Endpoint) error {
	return e.submit(ctx, "connect", func(ctx context.Context) error {
		if err := e.graph.Connect(ctx, from, to); err != nil {
			return err
		}
		e.graphChanged("connect")
		return nil
	})
}

// Disconnect removes a connection and any bridge it used.
func (e *Engine) Disconnect(ctx context.Context, from, to graph.Endpoint) error {
	return e.submit(ctx, "disconnect", func(ctx context.Context) error {
		if err := e.graph.Disconnect(ctx, from, to); err != nil {
			return err
		}
		e.bridges.Prune(e.graph.Snapshot())
		e.graphChanged("disconnect")
		return nil
	})
}

// StartDomain starts ticking the named domain. The domain must be served
// by Run or a supervisor service.
func (e *Engine) StartDomain(ctx context.Context, name string) error {
	return e.submit(ctx, "start_domain", func(context.Context) error {
		d, err := e.domain(name)
		if err != nil {
			return err
		}
		return d.Start()
	})
}

// StopDomain drains and stops the named domain.
func (e *Engine) StopDomain(ctx context.Context, name string) error {
	return e.submit(ctx, "stop_domain", func(context.Context) error {
		d, err := e.domain(name)
		if err != nil {
			return err
		}
		d.Stop()
		return nil
	})
}

// ClearFault puts a faulted node back into the execution order. Clearing
// a healthy node is a no-op.
func (e *Engine) ClearFault(ctx context.Context, id graph.NodeID) error {
	return e.submit(ctx, "clear_fault", func(context.Context) error {
		if _, ok := e.graph.Node(id); !ok {
			return fmt.Errorf("%w: %d", graph.ErrNodeNotFound, id)
		}
		if e.faults.Clear(id) {
			e.log.Info().Uint64("node_id", uint64(id)).Msg("Node fault cleared")
		}
		return nil
	})
}

func (e *Engine) domain(name string) (*scheduler.Domain, error) {
	d, ok := e.domains[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", graph.ErrUnknownDomain, name)
	}
	return d, nil
}

func (e *Engine) graphChanged(op string) {
	if e.deps.Events != nil {
		e.deps.Events.GraphChanged(op, e.graph.Snapshot().Generation)
	}
}
