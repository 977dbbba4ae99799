// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Command mixgraph runs the media graph engine and its stream store.

# Startup Order

 1. Configuration: defaults, config.yaml, then environment (Koanf v2)
 2. Database: DuckDB with the streams, blobs, media and workspaces tables
 3. Stream store and media catalog
 4. Chunk journal (BadgerDB, WAL_ENABLED=true) and replay of pending chunks
 5. Event bus (EVENTS_ENABLED=true), local or NATS_URL
 6. Engine with one scheduling domain per enabled media type
 7. Supervisor tree: persister, journal GC, domains, event bus, ops HTTP

Domains start Idle. A control plane, or MIXGRAPH_DEMO=true, starts them.
With ENGINE_WORKSPACE=<name> the layout saved under that name is loaded
into the graph before the demo is built.

# Ops Endpoints

	GET /healthz     database ping
	GET /status      engine status as JSON
	GET /media       catalog entries (?kind=recording&prefix=demo-)
	GET /workspaces  saved graph layouts
	GET /metrics     Prometheus

# Signal Handling

SIGINT and SIGTERM first save the configured workspace, then stop every
domain gracefully: sink queues are
flushed and egresses closed, so recordings submit their last chunk and are
marked complete. The wait is bounded by engine.drain_timeout, and a second
signal skips it. The supervisor tree is then cancelled, the persister
drains its queue for up to five seconds, and whatever is left stays in the
journal for the next start.

# Example

	export AUDIO_SAMPLE_RATE=48000
	export WAL_ENABLED=true WAL_PATH=/var/lib/mixgraph/journal
	export MIXGRAPH_DEMO=true
	./mixgraph
*/
package main
