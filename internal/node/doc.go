// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Package node defines the processing unit of the media graph and the built-in
node variants.

A Node declares a fixed port shape and a Process step that maps one input
buffer per input port to one output buffer per output port. Process must
depend only on its inputs, the tick clock and the node's own state, so the
scheduler is free to run independent nodes in any order. Buffers may be
shared between several downstream nodes and must never be modified in place.

Optional capabilities are expressed as small interfaces checked by the
scheduler:

  - Puller: sources that fetch ingest data before the tick runs
  - SinkNode: sinks whose input is handed to an Egress off the tick path
  - Delayed: nodes that accept feedback input with a fixed latency
  - Closer: nodes holding resources released on removal

Built-in variants cover sources (ingest, stream playback, sine), sinks
(egress, stream store), transforms (gain, pan, low-pass, delay, function) and
mixers (audio sum with gain and fader, video priority composite).
*/
package node
