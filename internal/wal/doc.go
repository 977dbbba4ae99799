// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

// Package wal journals assembled recording chunks in BadgerDB before they
// are appended to the Stream Store.
//
// A chunk is written to the journal as soon as it is assembled and
// confirmed once the store has committed it. Chunks still pending after a
// crash are replayed by the persister on startup:
//
//	Recorder → Journal.Write (fsync) → Store.AppendAt → Journal.Confirm
//	                                           ↓ (crash or store outage)
//	                                   entry kept for replay
//
// Keys are ordered by stream then offset, so Pending returns chunks in the
// order they must be appended.
//
// When the journal is disabled the engine uses Nop, which keeps nothing.
package wal
