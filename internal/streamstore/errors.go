// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package streamstore

import (
	"errors"
	"fmt"

	"github.com/tomtom215/mixgraph/internal/apperr"
)

var (
	// ErrStreamNotFound is returned for an unknown stream id.
	ErrStreamNotFound = fmt.Errorf("stream %w", apperr.ErrNotFound)

	// ErrOutOfRange is returned for reads outside [0, size).
	ErrOutOfRange = fmt.Errorf("stream read %w", apperr.ErrOutOfRange)

	// ErrOffsetConflict is returned when a chunk offset is not the current size.
	ErrOffsetConflict = fmt.Errorf("chunk offset conflict: %w", apperr.ErrOutOfRange)

	// ErrStreamBusy is returned when the stream's writer slot stays taken.
	ErrStreamBusy = fmt.Errorf("stream writer %w", apperr.ErrBusy)

	// ErrStreamComplete is returned when appending to a completed stream.
	ErrStreamComplete = fmt.Errorf("stream complete: %w", apperr.ErrClosed)

	// ErrStreamFailed is returned for streams whose last append hit a storage error.
	ErrStreamFailed = fmt.Errorf("stream failed: %w", apperr.ErrClosed)

	// ErrCorrupt is returned when committed chunks do not cover a requested range.
	ErrCorrupt = errors.New("stream chunks corrupt")
)
