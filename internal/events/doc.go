// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

// Package events publishes engine status changes on a Watermill bus.
//
// Events are produced on the tick path and the persister, so Publish
// never blocks: events go into a bounded buffer drained by Run, and a full
// buffer drops the event. Publishing to the backend goes through a circuit
// breaker; backend failures are logged and counted, never returned to the
// producer.
//
// Backends:
//
//   - In-process Watermill gochannel (default). Subscribe is available.
//   - NATS core subjects through watermill-nats when a URL is configured.
//
// Topics are "<prefix>.<type>", for example "mixgraph.node.fault".
package events
