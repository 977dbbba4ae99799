// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/mixgraph/internal/engine"
	"github.com/tomtom215/mixgraph/internal/graph"
	"github.com/tomtom215/mixgraph/internal/logging"
	"github.com/tomtom215/mixgraph/internal/node"
)

// graphBuilder is the subset of *engine.Engine the demo uses.
type graphBuilder interface {
	AddNode(ctx context.Context, n node.Node, domain string) (graph.NodeID, error)
	Connect(ctx context.Context, from, to graph.Endpoint) error
	StartDomain(ctx context.Context, name string) error
}

// buildDemo wires sine -> gain -> recording into the audio domain and
// starts it.
func buildDemo(ctx context.Context, eng *engine.Engine) error {
	sink, entry, err := eng.NewRecording(ctx, "demo-"+time.Now().UTC().Format("20060102T150405Z"), engine.DomainAudio)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	if err := wireChain(ctx, eng, engine.DomainAudio, node.NewSine(440, 0.25), node.NewGain(0.8), sink); err != nil {
		return err
	}
	logging.Info().
		Int64("media_id", int64(entry.ID)).
		Int64("stream_id", int64(entry.StreamID)).
		Msg("Demo graph recording")
	return nil
}

// wireChain adds nodes in order, connects each output 0 to the next input
// 0 and starts the domain.
func wireChain(ctx context.Context, b graphBuilder, domain string, nodes ...node.Node) error {
	var prev graph.NodeID
	for i, n := range nodes {
		id, err := b.AddNode(ctx, n, domain)
		if err != nil {
			return fmt.Errorf("add %s: %w", n.Variant(), err)
		}
		if i > 0 {
			if err := b.Connect(ctx, graph.Endpoint{Node: prev}, graph.Endpoint{Node: id}); err != nil {
				return fmt.Errorf("connect %d -> %d: %w", prev, id, err)
			}
		}
		prev = id
	}
	return b.StartDomain(ctx, domain)
}
