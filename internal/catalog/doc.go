// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

// Package catalog maps named, typed media entries onto stream store streams.
//
// An entry holds a non-owning reference to a stream. Deleting an entry never
// touches the stream's bytes, so pending playback and other entries that
// reference the same stream keep working. Stream retention is handled
// outside this package.
package catalog
