// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Package scheduler drives clock domains over the published graph topology.

Each Domain runs its own tick loop at a fixed interval (one audio block or
one video frame) and moves through Idle, Running, Draining and Stopped. All
domains share one SessionClock so buffers carry comparable timestamps.

# Tick

A tick loads the current topology once, so mutations published by the
engine take effect at the next tick boundary and never mid-tick. It then:

 1. checks that every sink queue of the domain has room, otherwise the tick
    is delayed and the domain slows down
 2. pulls ingest data into sources concurrently, each bounded by the
    domain tolerance; a source without data emits an underrun marker
 3. runs the domain's nodes in topological order, feeding each input from
    the upstream output of this tick
 4. enqueues sink inputs for their egress workers and publishes outputs
    that cross into other domains

# Backpressure

Each sink owns a bounded queue drained by its own goroutine, so a slow
egress or a full persistence queue never blocks the tick itself. When a
queue is full the domain skips the tick and doubles its interval, up to
MaxSlowdown. Successful ticks decay the slowdown again. Other domains keep
their cadence.

# Cross-domain connections

A connection between nodes of different domains goes through a Bridge, a
bounded channel owned by the producing and consuming loops. The consumer
takes the newest buffer whose timestamp is not after its own tick time.
A full bridge drops its oldest buffer and counts an overwrite.

# Faults

A node that panics or returns an error is marked in the shared Faults
registry. Faulted nodes are skipped, so their outputs are absent downstream,
until the fault is cleared.
*/
package scheduler
