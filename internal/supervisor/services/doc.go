// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Package services provides suture.Service wrappers for Mixgraph components.

Each wrapper translates a component lifecycle into suture's
Serve(ctx) error pattern and names itself via fmt.Stringer for the
supervisor's event log.

# Available Services

Domain (DomainService):
  - Wraps scheduler.Domain.Run for one scheduling domain
  - Named "domain-<name>"

Runners (PersisterService, EventBusService, JournalGCService):
  - Wrap components whose Run(ctx) blocks until cancellation
  - A premature nil return is reported as an error so suture restarts it

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe to Serve

# Return Values

A wrapper returns ctx.Err() on shutdown. Any other error is a crash and
triggers a restart with backoff.
*/
package services
