// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/graph"
	"github.com/tomtom215/mixgraph/internal/node"
)

type fakeBuilder struct {
	next       graph.NodeID
	links      [][2]graph.NodeID
	started    string
	connectErr error
}

func (b *fakeBuilder) AddNode(_ context.Context, _ node.Node, _ string) (graph.NodeID, error) {
	b.next++
	return b.next, nil
}

func (b *fakeBuilder) Connect(_ context.Context, from, to graph.Endpoint) error {
	if b.connectErr != nil {
		return b.connectErr
	}
	b.links = append(b.links, [2]graph.NodeID{from.Node, to.Node})
	return nil
}

func (b *fakeBuilder) StartDomain(_ context.Context, name string) error {
	b.started = name
	return nil
}

func TestWireChain(t *testing.T) {
	b := &fakeBuilder{}
	err := wireChain(context.Background(), b, "audio", node.NewSine(440, 1), node.NewGain(0.5), node.NewGain(2))
	if err != nil {
		t.Fatalf("wireChain: %v", err)
	}
	want := [][2]graph.NodeID{{1, 2}, {2, 3}}
	if len(b.links) != len(want) || b.links[0] != want[0] || b.links[1] != want[1] {
		t.Errorf("links = %v, want %v", b.links, want)
	}
	if b.started != "audio" {
		t.Errorf("started %q", b.started)
	}
}

func TestWireChainStopsOnError(t *testing.T) {
	b := &fakeBuilder{connectErr: apperr.ErrTypeMismatch}
	err := wireChain(context.Background(), b, "audio", node.NewSine(440, 1), node.NewGain(1))
	if !errors.Is(err, apperr.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	if b.started != "" {
		t.Error("domain started after failed connect")
	}
}
