// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package graph

import (
	"fmt"

	"github.com/tomtom215/mixgraph/internal/apperr"
)

var (
	ErrNodeNotFound       = fmt.Errorf("node %w", apperr.ErrNotFound)
	ErrConnectionNotFound = fmt.Errorf("connection %w", apperr.ErrNotFound)
	ErrPortNotFound       = fmt.Errorf("port does not exist: %w", apperr.ErrInvalidArgument)
	ErrUnknownDomain      = fmt.Errorf("unknown clock domain: %w", apperr.ErrInvalidArgument)
	ErrInvalidFeedback    = fmt.Errorf("feedback input requires positive latency: %w", apperr.ErrInvalidArgument)
	ErrNodeConnected      = fmt.Errorf("node has live connections: %w", apperr.ErrBusy)
	ErrTypeMismatch       = fmt.Errorf("port %w", apperr.ErrTypeMismatch)
	ErrPortOccupied       = fmt.Errorf("input %w", apperr.ErrPortOccupied)
	ErrCycleDetected      = fmt.Errorf("connection %w", apperr.ErrCycleDetected)
)
