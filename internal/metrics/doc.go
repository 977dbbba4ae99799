// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Package metrics declares the Prometheus collectors for mixgraph and small
Record helpers that keep label handling in one place.

Collectors are registered on the default registry through promauto and are
exposed by the ops server at /metrics.

# Metric Families

Scheduler (label: domain):
  - mixgraph_ticks_total, mixgraph_tick_duration_seconds
  - mixgraph_tick_overruns_total: ticks whose processing exceeded the tick budget
  - mixgraph_ticks_delayed_total: ticks postponed by sink backpressure (Overload)
  - mixgraph_domain_slowdown: current tick interval multiplier
  - mixgraph_domain_state: 0 idle, 1 running, 2 draining, 3 stopped
  - mixgraph_underruns_total: source underrun markers emitted
  - mixgraph_node_faults_total, mixgraph_node_process_seconds (label: variant)
  - mixgraph_sink_queue_depth, mixgraph_bridge_overwrites_total

Stream store:
  - mixgraph_store_appends_total (label: result), mixgraph_store_append_bytes_total
  - mixgraph_store_append_duration_seconds, mixgraph_store_reads_total
  - mixgraph_chunk_cache_hits_total, mixgraph_chunk_cache_misses_total

Persistence and control:
  - mixgraph_persist_queue_depth, mixgraph_persist_chunks_total (label: result)
  - mixgraph_graph_mutations_total (labels: op, result)
  - mixgraph_commands_rejected_total
  - mixgraph_events_published_total, mixgraph_events_dropped_total

The chunk journal exports its own mixgraph_wal_* family from the wal package.
*/
package metrics
