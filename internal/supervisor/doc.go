// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Package supervisor runs the long-lived Mixgraph services under suture v4.

# Overview

Services are grouped into three layers so a failure in one does not
restart the others:

	RootSupervisor ("mixgraph")
	├── DataSupervisor ("data-layer")
	│   ├── PersisterService
	│   └── JournalGCService (if WAL enabled)
	├── EngineSupervisor ("engine-layer")
	│   ├── DomainService per scheduling domain
	│   └── EventBusService (if events enabled)
	└── OpsSupervisor ("ops-layer")
	    └── HTTPServerService

# Usage

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewPersisterService(persister))
	for _, d := range eng.Domains() {
	    tree.AddEngineService(services.NewDomainService(d))
	}
	tree.AddOpsService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)

# Failure Handling

Each service failure increments a counter that decays over FailureDecay
seconds. Above FailureThreshold the supervisor waits FailureBackoff before
the next restart. Returning nil or an error from Serve restarts the
service; returning suture.ErrDoNotRestart does not.

Restarting a domain service hard-stops that domain: in-flight buffers are
discarded and the domain returns to waiting for a start command.

# What Is NOT Supervised

DuckDB and BadgerDB are embedded libraries opened once in main. The engine
control goroutine is owned by engine.Engine and stopped by its Close.

# Debugging Shutdown Issues

	report, err := tree.UnstoppedServiceReport()

lists services that did not stop within ShutdownTimeout. The usual cause
is a sink whose Deliver ignores its context.
*/
package supervisor
