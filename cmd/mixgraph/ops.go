// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/mixgraph/internal/catalog"
	"github.com/tomtom215/mixgraph/internal/config"
	"github.com/tomtom215/mixgraph/internal/engine"
	"github.com/tomtom215/mixgraph/internal/logging"
	"github.com/tomtom215/mixgraph/internal/middleware"
)

const healthTimeout = 2 * time.Second

// statusSource is satisfied by *engine.Engine.
type statusSource interface {
	Status() engine.Status
}

// pinger is satisfied by *database.DB.
type pinger interface {
	Ping(ctx context.Context) error
}

// catalogReader is satisfied by *catalog.Catalog.
type catalogReader interface {
	Find(ctx context.Context, f catalog.Filter) ([]catalog.Entry, error)
	Workspaces(ctx context.Context) ([]catalog.WorkspaceInfo, error)
}

type opsHandler struct {
	status statusSource
	db     pinger
	media  catalogReader
}

// newOpsRouter serves the read-only ops endpoints. media may be nil.
func newOpsRouter(cfg config.ServerConfig, status statusSource, db pinger, media catalogReader) http.Handler {
	h := &opsHandler{status: status, db: db, media: media}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	if cfg.RateLimitRequests > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	r.Get("/healthz", h.health)
	r.Get("/status", h.engineStatus)
	if media != nil {
		r.Get("/media", h.listMedia)
		r.Get("/workspaces", h.listWorkspaces)
	}
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (h *opsHandler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *opsHandler) engineStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Status())
}

// listMedia accepts repeated kind parameters and a name prefix.
func (h *opsHandler) listMedia(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.media.Find(r.Context(), catalog.Filter{
		Kinds:      q["kind"],
		NamePrefix: q.Get("prefix"),
	})
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Catalog query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog query failed"})
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *opsHandler) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := h.media.Workspaces(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Workspace query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "workspace query failed"})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}
