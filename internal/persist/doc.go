// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

// Package persist moves recorded media from the tick path into the
// Stream Store.
//
// A Recorder is the egress of a recording sink. It encodes buffers,
// assembles fixed-size chunks and hands them to a bounded Queue. The
// Persister is the only consumer of that queue: it journals each chunk,
// appends it at its offset through a circuit breaker and confirms the
// journal entry once the store committed it.
//
// A full queue blocks the Recorder, which fills the sink queue and slows
// the clock domain instead of growing memory.
package persist
