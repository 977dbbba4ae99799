// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package main

import (
	"context"
	"errors"

	"github.com/tomtom215/mixgraph/internal/catalog"
	"github.com/tomtom215/mixgraph/internal/engine"
	"github.com/tomtom215/mixgraph/internal/graph"
	"github.com/tomtom215/mixgraph/internal/logging"
)

// workspaceKeeper is satisfied by *engine.Engine.
type workspaceKeeper interface {
	Save(ctx context.Context, name string) (engine.Workspace, error)
	Load(ctx context.Context, name string) (map[graph.NodeID]graph.NodeID, error)
}

// restoreWorkspace loads the configured layout. A workspace that was never
// saved is not an error on first start.
func restoreWorkspace(ctx context.Context, eng workspaceKeeper, name string) error {
	ids, err := eng.Load(ctx, name)
	if errors.Is(err, catalog.ErrWorkspaceNotFound) {
		logging.Info().Str("workspace", name).Msg("No saved workspace, starting with an empty graph")
		return nil
	}
	if err != nil {
		return err
	}
	logging.Info().Str("workspace", name).Int("nodes", len(ids)).Msg("Workspace restored")
	return nil
}

// saveWorkspace records the layout before the domains are drained.
func saveWorkspace(ctx context.Context, eng workspaceKeeper, name string) {
	ws, err := eng.Save(ctx, name)
	if err != nil {
		logging.Error().Err(err).Str("workspace", name).Msg("Failed to save workspace")
		return
	}
	if len(ws.Skipped) > 0 {
		logging.Warn().
			Str("workspace", name).
			Int("skipped", len(ws.Skipped)).
			Msg("Nodes bound to ingests, egresses or streams were not saved")
	}
}
