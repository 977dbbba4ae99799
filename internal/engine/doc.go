// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

// Package engine is the composition root of the processing graph.
//
// An Engine owns the Graph, the session clock and one scheduler.Domain per
// enabled clock domain. Mutations and domain lifecycle commands are queued
// on a bounded channel and applied by a single control goroutine, so the
// graph has one writer. Domains pick up the published topology at their
// next tick boundary.
//
// When the command queue is full, commands fail immediately with
// apperr.ErrBusy instead of waiting.
package engine
