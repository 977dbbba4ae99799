// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/graph"
	"github.com/tomtom215/mixgraph/internal/media"
	"github.com/tomtom215/mixgraph/internal/node"
)

// memWorkspaces keeps documents in a map.
type memWorkspaces struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newMemWorkspaces() *memWorkspaces {
	return &memWorkspaces{docs: make(map[string][]byte)}
}

func (m *memWorkspaces) SaveWorkspace(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = data
	return nil
}

func (m *memWorkspaces) LoadWorkspace(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	if !ok {
		return nil, fmt.Errorf("workspace %q: %w", name, apperr.ErrNotFound)
	}
	return data, nil
}

func TestWorkspaceRoundTrip(t *testing.T) {
	ctx := testContext(t)
	store := newMemWorkspaces()
	src := newTestEngine(t, testConfig(), Deps{Workspaces: store})

	add := func(n node.Node, domain string) graph.NodeID {
		t.Helper()
		id, err := src.AddNode(ctx, n, domain)
		if err != nil {
			t.Fatal(err)
		}
		return id
	}
	link := func(from graph.NodeID, to graph.NodeID, port int) {
		t.Helper()
		if err := src.Connect(ctx, graph.Endpoint{Node: from}, graph.Endpoint{Node: to, Port: port}); err != nil {
			t.Fatal(err)
		}
	}

	tone := add(node.NewSine(220, 0.5), DomainAudio)
	hum := add(node.NewSine(50, 0.1), DomainAudio)
	gain := add(node.NewGain(0.25), DomainAudio)
	mixer := node.NewAudioMixer(2)
	mixer.SetFader(0.8)
	mix := add(mixer, DomainAudio)
	sink := add(node.NewEgressSink(media.Audio, discardEgress{}), DomainAudio)
	add(node.NewVideoMixer(3), DomainVideo)
	link(tone, gain, 0)
	link(gain, mix, 0)
	link(hum, mix, 1)
	link(mix, sink, 0)

	ws, err := src.Save(ctx, "session")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(ws.Nodes) != 5 || len(ws.Connections) != 3 {
		t.Errorf("saved %d nodes, %d connections", len(ws.Nodes), len(ws.Connections))
	}
	if len(ws.Skipped) != 1 || ws.Skipped[0] != sink {
		t.Errorf("skipped = %v, want the egress sink", ws.Skipped)
	}

	dst := newTestEngine(t, testConfig(), Deps{Workspaces: store})
	// an existing node shifts every id the load hands out
	if _, err := dst.AddNode(ctx, node.NewGain(1), DomainAudio); err != nil {
		t.Fatal(err)
	}
	ids, err := dst.Load(ctx, "session")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ids) != 5 {
		t.Fatalf("ids = %v", ids)
	}

	topo := dst.graph.Snapshot()
	if topo.Len() != 6 || len(topo.Connections()) != 3 {
		t.Errorf("loaded graph has %d nodes, %d connections", topo.Len(), len(topo.Connections()))
	}
	entry, ok := topo.Node(ids[gain])
	if !ok {
		t.Fatal("gain not loaded")
	}
	if p := entry.Node.(node.Describer).Describe().Params; p["gain"] != 0.25 {
		t.Errorf("gain params = %v", p)
	}
	if c, ok := topo.Input(graph.Endpoint{Node: ids[mix], Port: 1}); !ok || c.From.Node != ids[hum] {
		t.Errorf("mixer input 1 = %+v, %v", c, ok)
	}
	entry, _ = topo.Node(ids[mix])
	if p := entry.Node.(node.Describer).Describe().Params; p["fader"] != float64(float32(0.8)) {
		t.Errorf("mixer params = %v", p)
	}
	for old, id := range ids {
		want, _ := src.graph.Snapshot().Node(old)
		got, _ := topo.Node(id)
		if got.Domain != want.Domain {
			t.Errorf("node %d domain = %s, want %s", old, got.Domain, want.Domain)
		}
	}
}

func TestWorkspaceLoadIsAllOrNothing(t *testing.T) {
	ctx := testContext(t)
	store := newMemWorkspaces()
	e := newTestEngine(t, testConfig(), Deps{Workspaces: store})

	docs := map[string]string{
		"bad port": `{"version":1,"nodes":[
			{"id":1,"domain":"audio","kind":"sine"},
			{"id":2,"domain":"audio","kind":"gain"}],
			"connections":[{"from":{"node":1,"port":0},"to":{"node":2,"port":0}},
			               {"from":{"node":1,"port":0},"to":{"node":2,"port":5}}]}`,
		"unknown domain": `{"version":1,"nodes":[
			{"id":1,"domain":"audio","kind":"sine"},
			{"id":2,"domain":"midi","kind":"gain"}]}`,
		"dangling connection": `{"version":1,"nodes":[{"id":1,"domain":"audio","kind":"sine"}],
			"connections":[{"from":{"node":1,"port":0},"to":{"node":9,"port":0}}]}`,
		"unknown kind":   `{"version":1,"nodes":[{"id":1,"domain":"audio","kind":"theremin"}]}`,
		"repeated id":    `{"version":1,"nodes":[{"id":1,"domain":"audio","kind":"sine"},{"id":1,"domain":"audio","kind":"gain"}]}`,
		"future version": `{"version":99,"nodes":[]}`,
		"not json":       `{"version":`,
	}
	for name, doc := range docs {
		if err := store.SaveWorkspace(ctx, name, []byte(doc)); err != nil {
			t.Fatal(err)
		}
	}

	for name := range docs {
		t.Run(name, func(t *testing.T) {
			if _, err := e.Load(ctx, name); err == nil {
				t.Fatal("Load succeeded")
			}
			if n := e.graph.Snapshot().Len(); n != 0 {
				t.Errorf("failed load left %d nodes behind", n)
			}
		})
	}
}

func TestWorkspaceWithoutStore(t *testing.T) {
	ctx := testContext(t)
	e := newTestEngine(t, testConfig(), Deps{})
	if _, err := e.Save(ctx, "x"); !errors.Is(err, ErrNoWorkspaceStore) {
		t.Errorf("Save err = %v", err)
	}
	if _, err := e.Load(ctx, "x"); !errors.Is(err, ErrNoWorkspaceStore) {
		t.Errorf("Load err = %v", err)
	}
}
