// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package wal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the chunk journal
var (
	walWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mixgraph_wal_writes_total",
		Help: "Total number of journaled chunks",
	})

	walConfirmsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mixgraph_wal_confirms_total",
		Help: "Total number of journaled chunks confirmed by the store",
	})

	walWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mixgraph_wal_write_failures_total",
		Help: "Total number of failed journal writes",
	})

	walPendingEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mixgraph_wal_pending_entries",
		Help: "Chunks journaled but not yet committed to the store",
	})

	walWriteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mixgraph_wal_write_latency_seconds",
		Help:    "Journal write latency in seconds",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
	})

	walGCRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mixgraph_wal_gc_runs_total",
		Help: "Total number of value log GC passes",
	})

	walDBSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mixgraph_wal_db_size_bytes",
		Help: "BadgerDB size in bytes after the last GC pass",
	})
)
