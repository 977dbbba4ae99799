// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/mixgraph/internal/apperr"
)

// tickBuckets cover a 10ms audio tick with resolution down to 50us.
var tickBuckets = []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1}

var (
	// Scheduler Metrics
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixgraph_ticks_total",
			Help: "Total number of executed ticks per clock domain",
		},
		[]string{"domain"},
	)

	TickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mixgraph_tick_duration_seconds",
			Help:    "Wall time spent executing one tick",
			Buckets: tickBuckets,
		},
		[]string{"domain"},
	)

	TickOverruns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixgraph_tick_overruns_total",
			Help: "Ticks whose processing took longer than the tick interval",
		},
		[]string{"domain"},
	)

	TicksDelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixgraph_ticks_delayed_total",
			Help: "Ticks postponed because a sink queue was full",
		},
		[]string{"domain"},
	)

	DomainSlowdown = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mixgraph_domain_slowdown",
			Help: "Current tick interval multiplier applied by backpressure (1 = nominal)",
		},
		[]string{"domain"},
	)

	DomainState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mixgraph_domain_state",
			Help: "Clock domain state: 0 idle, 1 running, 2 draining, 3 stopped",
		},
		[]string{"domain"},
	)

	Underruns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixgraph_underruns_total",
			Help: "Underrun markers emitted by sources",
		},
		[]string{"domain"},
	)

	NodeFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixgraph_node_faults_total",
			Help: "Nodes moved to the fault state",
		},
		[]string{"domain"},
	)

	NodeProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mixgraph_node_process_seconds",
			Help:    "Time spent in a single node process step",
			Buckets: tickBuckets,
		},
		[]string{"domain", "variant"},
	)

	SinkQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mixgraph_sink_queue_depth",
			Help: "Buffers waiting in a sink egress queue",
		},
		[]string{"domain", "node"},
	)

	BridgeOverwrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixgraph_bridge_overwrites_total",
			Help: "Stale buffers replaced in a full cross-domain bridge",
		},
		[]string{"from_domain", "to_domain"},
	)

	// Stream Store Metrics
	StoreAppends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixgraph_store_appends_total",
			Help: "Stream store append attempts by result code",
		},
		[]string{"result"},
	)

	StoreAppendBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mixgraph_store_append_bytes_total",
			Help: "Bytes committed to the stream store",
		},
	)

	StoreAppendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mixgraph_store_append_duration_seconds",
			Help:    "Duration of a chunk commit transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixgraph_store_reads_total",
			Help: "Stream store reads by result code",
		},
		[]string{"result"},
	)

	ChunkCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mixgraph_chunk_cache_hits_total",
			Help: "Committed chunk reads served from memory",
		},
	)

	ChunkCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mixgraph_chunk_cache_misses_total",
			Help: "Committed chunk reads that went to DuckDB",
		},
	)

	// Persistence Metrics
	PersistQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mixgraph_persist_queue_depth",
			Help: "Assembled chunks waiting for the persister",
		},
	)

	PersistChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixgraph_persist_chunks_total",
			Help: "Chunks handled by the persister: committed, duplicate, deferred, failed",
		},
		[]string{"result"},
	)

	// Control Metrics
	GraphMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixgraph_graph_mutations_total",
			Help: "Graph mutations by operation and result code",
		},
		[]string{"op", "result"},
	)

	CommandsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mixgraph_commands_rejected_total",
			Help: "Engine commands rejected because the command queue was full",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixgraph_events_published_total",
			Help: "Status events published by type",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mixgraph_events_dropped_total",
			Help: "Status events dropped because the dispatch buffer was full or the breaker was open",
		},
	)

	// Ops HTTP Metrics
	OpsRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixgraph_ops_requests_total",
			Help: "Ops endpoint requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	OpsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mixgraph_ops_request_duration_seconds",
			Help:    "Ops endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	OpsActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mixgraph_ops_active_requests",
			Help: "Ops requests currently being served",
		},
	)
)

// result returns the label value for an operation outcome.
func result(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.Code(err)
}

// RecordTick records one executed tick and whether it overran its budget.
func RecordTick(domain string, took, budget time.Duration) {
	TicksTotal.WithLabelValues(domain).Inc()
	TickDuration.WithLabelValues(domain).Observe(took.Seconds())
	if took > budget {
		TickOverruns.WithLabelValues(domain).Inc()
	}
}

// RecordDelayedTick records a tick postponed by backpressure and the new slowdown.
func RecordDelayedTick(domain string, slowdown int) {
	TicksDelayed.WithLabelValues(domain).Inc()
	DomainSlowdown.WithLabelValues(domain).Set(float64(slowdown))
}

// RecordSlowdown publishes the current slowdown factor.
func RecordSlowdown(domain string, slowdown int) {
	DomainSlowdown.WithLabelValues(domain).Set(float64(slowdown))
}

// RecordDomainState publishes a domain state transition.
func RecordDomainState(domain string, state int) {
	DomainState.WithLabelValues(domain).Set(float64(state))
}

// RecordUnderrun counts an underrun marker.
func RecordUnderrun(domain string) {
	Underruns.WithLabelValues(domain).Inc()
}

// RecordNodeFault counts a node entering the fault state.
func RecordNodeFault(domain string) {
	NodeFaults.WithLabelValues(domain).Inc()
}

// RecordNodeProcess observes one node process step.
func RecordNodeProcess(domain, variant string, took time.Duration) {
	NodeProcessDuration.WithLabelValues(domain, variant).Observe(took.Seconds())
}

// RecordAppend records a stream store append attempt.
func RecordAppend(n int, took time.Duration, err error) {
	StoreAppends.WithLabelValues(result(err)).Inc()
	if err == nil {
		StoreAppendBytes.Add(float64(n))
		StoreAppendDuration.Observe(took.Seconds())
	}
}

// RecordRead records a stream store read.
func RecordRead(err error) {
	StoreReads.WithLabelValues(result(err)).Inc()
}

// RecordCacheLookup records a chunk cache lookup.
func RecordCacheLookup(hit bool) {
	if hit {
		ChunkCacheHits.Inc()
		return
	}
	ChunkCacheMisses.Inc()
}

// RecordGraphMutation records a graph mutation attempt.
func RecordGraphMutation(op string, err error) {
	GraphMutations.WithLabelValues(op, result(err)).Inc()
}

// TrackActiveRequest adjusts the in-flight ops request gauge.
func TrackActiveRequest(start bool) {
	if start {
		OpsActiveRequests.Inc()
		return
	}
	OpsActiveRequests.Dec()
}

// RecordOpsRequest records one served ops request.
func RecordOpsRequest(method, route, status string, took time.Duration) {
	OpsRequests.WithLabelValues(method, route, status).Inc()
	OpsRequestDuration.WithLabelValues(route).Observe(took.Seconds())
}
