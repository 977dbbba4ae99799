// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package engine

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/graph"
	"github.com/tomtom215/mixgraph/internal/node"
)

// workspaceVersion is the document format written by Save.
const workspaceVersion = 1

// WorkspaceStore keeps encoded workspaces by name. *catalog.Catalog
// satisfies it.
type WorkspaceStore interface {
	SaveWorkspace(ctx context.Context, name string, data []byte) error
	LoadWorkspace(ctx context.Context, name string) ([]byte, error)
}

// ErrNoWorkspaceStore is returned by Save and Load when the engine was
// built without Deps.Workspaces.
var ErrNoWorkspaceStore = fmt.Errorf("engine has no workspace store: %w", apperr.ErrInvalidArgument)

// Workspace is a saved graph layout: the nodes node.Build can recreate and
// the connections between them. Nodes bound to ingests, egresses or
// streams are listed in Skipped along with their connections.
type Workspace struct {
	Version     int                `json:"version"`
	Nodes       []WorkspaceNode    `json:"nodes"`
	Connections []graph.Connection `json:"connections"`
	Skipped     []graph.NodeID     `json:"skipped,omitempty"`
}

// WorkspaceNode is one saved node under the id it had when saved.
type WorkspaceNode struct {
	ID     graph.NodeID `json:"id"`
	Domain string       `json:"domain"`
	node.Spec
}

// Save records the current graph under name. The layout is captured on
// the control goroutine, so it reflects every command applied before it.
func (e *Engine) Save(ctx context.Context, name string) (Workspace, error) {
	if e.deps.Workspaces == nil {
		return Workspace{}, ErrNoWorkspaceStore
	}
	var ws Workspace
	err := e.submit(ctx, "save_workspace", func(context.Context) error {
		ws = captureWorkspace(e.graph.Snapshot())
		return nil
	})
	if err != nil {
		return Workspace{}, err
	}

	data, err := json.Marshal(ws)
	if err != nil {
		return Workspace{}, fmt.Errorf("encode workspace %q: %w", name, err)
	}
	if err := e.deps.Workspaces.SaveWorkspace(ctx, name, data); err != nil {
		return Workspace{}, err
	}
	e.log.Info().
		Str("workspace", name).
		Int("nodes", len(ws.Nodes)).
		Int("connections", len(ws.Connections)).
		Int("skipped", len(ws.Skipped)).
		Msg("Workspace saved")
	return ws, nil
}

func captureWorkspace(topo *graph.Topology) Workspace {
	ws := Workspace{Version: workspaceVersion, Nodes: []WorkspaceNode{}, Connections: []graph.Connection{}}
	saved := make(map[graph.NodeID]bool)
	for _, entry := range topo.Nodes() {
		d, ok := entry.Node.(node.Describer)
		if !ok {
			ws.Skipped = append(ws.Skipped, entry.ID)
			continue
		}
		ws.Nodes = append(ws.Nodes, WorkspaceNode{ID: entry.ID, Domain: entry.Domain, Spec: d.Describe()})
		saved[entry.ID] = true
	}
	for _, c := range topo.Connections() {
		if saved[c.From.Node] && saved[c.To.Node] {
			ws.Connections = append(ws.Connections, c)
		}
	}
	return ws
}

// Load adds the workspace saved under name to the graph and returns the
// new id of every saved node, keyed by its saved id. The whole layout is
// applied as one command; if any node or connection is rejected, what was
// added is removed again.
func (e *Engine) Load(ctx context.Context, name string) (map[graph.NodeID]graph.NodeID, error) {
	if e.deps.Workspaces == nil {
		return nil, ErrNoWorkspaceStore
	}
	data, err := e.deps.Workspaces.LoadWorkspace(ctx, name)
	if err != nil {
		return nil, err
	}
	var ws Workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("%w: decode workspace %q: %v", apperr.ErrInvalidArgument, name, err)
	}
	if ws.Version != workspaceVersion {
		return nil, fmt.Errorf("%w: workspace %q has version %d", apperr.ErrInvalidArgument, name, ws.Version)
	}

	built := make([]node.Node, len(ws.Nodes))
	seen := make(map[graph.NodeID]bool, len(ws.Nodes))
	for i, wn := range ws.Nodes {
		if seen[wn.ID] {
			return nil, fmt.Errorf("%w: workspace %q repeats node %d", apperr.ErrInvalidArgument, name, wn.ID)
		}
		seen[wn.ID] = true
		if built[i], err = node.Build(wn.Spec); err != nil {
			return nil, fmt.Errorf("workspace %q node %d: %w", name, wn.ID, err)
		}
	}

	var ids map[graph.NodeID]graph.NodeID
	err = e.submit(ctx, "load_workspace", func(ctx context.Context) error {
		var err error
		ids, err = e.applyWorkspace(ctx, ws, built)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load workspace %q: %w", name, err)
	}
	e.log.Info().
		Str("workspace", name).
		Int("nodes", len(ws.Nodes)).
		Int("connections", len(ws.Connections)).
		Msg("Workspace loaded")
	return ids, nil
}

// applyWorkspace runs on the control goroutine.
func (e *Engine) applyWorkspace(ctx context.Context, ws Workspace, built []node.Node) (map[graph.NodeID]graph.NodeID, error) {
	ids := make(map[graph.NodeID]graph.NodeID, len(ws.Nodes))
	var made []graph.Connection

	undo := func() {
		// a cancelled command context must not stop the cleanup
		ctx := context.WithoutCancel(ctx)
		for i := len(made) - 1; i >= 0; i-- {
			_ = e.graph.Disconnect(ctx, made[i].From, made[i].To)
		}
		for _, id := range ids {
			_, _ = e.graph.RemoveNode(ctx, id)
		}
		e.bridges.Prune(e.graph.Snapshot())
	}

	for i, wn := range ws.Nodes {
		id, err := e.graph.AddNode(ctx, built[i], wn.Domain)
		if err != nil {
			undo()
			return nil, fmt.Errorf("node %d: %w", wn.ID, err)
		}
		ids[wn.ID] = id
	}
	for _, c := range ws.Connections {
		from, okFrom := ids[c.From.Node]
		to, okTo := ids[c.To.Node]
		if !okFrom || !okTo {
			undo()
			return nil, fmt.Errorf("%w: connection %s -> %s names an unsaved node", apperr.ErrInvalidArgument, c.From, c.To)
		}
		mapped := graph.Connection{
			From: graph.Endpoint{Node: from, Port: c.From.Port},
			To:   graph.Endpoint{Node: to, Port: c.To.Port},
		}
		if err := e.graph.Connect(ctx, mapped.From, mapped.To); err != nil {
			undo()
			return nil, fmt.Errorf("connection %s -> %s: %w", c.From, c.To, err)
		}
		made = append(made, mapped)
	}
	e.graphChanged("load_workspace")
	return ids, nil
}
