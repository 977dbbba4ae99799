// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/logging"
)

// ErrWorkspaceNotFound is returned for an unknown workspace name.
var ErrWorkspaceNotFound = fmt.Errorf("workspace %w", apperr.ErrNotFound)

// WorkspaceInfo is one saved workspace without its document.
type WorkspaceInfo struct {
	Name    string    `json:"name"`
	Size    int       `json:"size"`
	SavedAt time.Time `json:"saved_at"`
}

// SaveWorkspace stores data under name, replacing an earlier save.
func (c *Catalog) SaveWorkspace(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return fmt.Errorf("%w: workspace name is required", apperr.ErrInvalidArgument)
	}
	_, err := c.db.Conn().ExecContext(ctx,
		`INSERT OR REPLACE INTO workspaces (name, data, saved_at) VALUES (?, ?, current_timestamp)`,
		name, string(data))
	if err != nil {
		return fmt.Errorf("save workspace %q: %w", name, err)
	}
	logging.Debug().Str("workspace", name).Int("bytes", len(data)).Msg("Workspace saved")
	return nil
}

// LoadWorkspace returns the document saved under name.
func (c *Catalog) LoadWorkspace(ctx context.Context, name string) ([]byte, error) {
	var data string
	err := c.db.Conn().QueryRowContext(ctx, `SELECT data FROM workspaces WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrWorkspaceNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load workspace %q: %w", name, err)
	}
	return []byte(data), nil
}

// Workspaces lists saved workspaces by name.
func (c *Catalog) Workspaces(ctx context.Context) ([]WorkspaceInfo, error) {
	rows, err := c.db.Conn().QueryContext(ctx,
		`SELECT name, length(data), saved_at FROM workspaces ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	out := []WorkspaceInfo{}
	for rows.Next() {
		var w WorkspaceInfo
		if err := rows.Scan(&w.Name, &w.Size, &w.SavedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workspaces: %w", err)
	}
	return out, nil
}

// DeleteWorkspace removes a saved workspace.
func (c *Catalog) DeleteWorkspace(ctx context.Context, name string) error {
	res, err := c.db.Conn().ExecContext(ctx, `DELETE FROM workspaces WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete workspace %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", ErrWorkspaceNotFound, name)
	}
	return nil
}
