// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Package apperr defines the error taxonomy shared by the stream store, the
media catalog, the graph and the scheduler.

Every package declares its own specific sentinels and wraps one of the
taxonomy errors declared here, so callers can branch on the class of failure
without knowing which layer produced it:

	if errors.Is(err, apperr.ErrBusy) {
	    // retry later
	}

# Classes

  - ErrNotFound: unknown stream, media entry, node, port or connection
  - ErrOutOfRange: read past the committed size or append at a wrong offset
  - ErrBusy: a conflicting operation is in flight
  - ErrTypeMismatch, ErrPortOccupied, ErrCycleDetected: rejected graph edits
  - ErrUnderrun: a source produced no data within its tolerance window
  - ErrOverload: backpressure threshold exceeded

Code maps any error to a stable string code suitable for status payloads.
*/
package apperr
