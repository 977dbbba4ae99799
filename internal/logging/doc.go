// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Package logging provides the zerolog-based structured logger used by every
mixgraph component.

# Quick Start

	logging.Init(logging.Config{Level: "info", Format: "json"})

	logging.Info().Str("domain", "audio").Msg("Clock domain running")
	logging.Error().Err(err).Int64("stream_id", id).Msg("Chunk commit failed")

# Component Loggers

Long-lived components create a child logger once and reuse it:

	log := logging.WithComponent("scheduler")
	log.Warn().Str("domain", name).Msg("Tick delayed by backpressure")

ForDomain, ForNode and ForStream add the identifiers that appear on almost
every engine log line, so field names stay consistent across packages:

	log := logging.ForNode("audio", 12)
	log.Error().Interface("panic", v).Msg("Node faulted")

# Context Propagation

Engine commands carry a correlation ID so a control-plane request can be
followed through the command queue, the graph mutation and the resulting
status events:

	ctx = logging.ContextWithNewCorrelationID(ctx)
	logging.Ctx(ctx).Info().Msg("Connect queued")

# Library Adapters

Two third-party libraries expect their own logger types. Both are backed by
the global zerolog logger:

  - NewSlogLogger returns a *slog.Logger for sutureslog (supervisor events)
  - NewWatermillLogger returns a watermill.LoggerAdapter for the status bus

# Best Practices

Always terminate log chains with .Msg() or .Send(). Never log from inside a
node's Process step; the scheduler logs faults and underruns on the node's
behalf, rate limited per domain.
*/
package logging
