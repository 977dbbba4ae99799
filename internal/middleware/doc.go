// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Package middleware provides HTTP middleware for the ops endpoints.

  - RequestID: X-Request-ID propagation into the logging context
  - Metrics: request count, latency and in-flight gauge per chi route

Both use the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
*/
package middleware
