// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package engine

import (
	"context"
	"fmt"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/catalog"
	"github.com/tomtom215/mixgraph/internal/graph"
	"github.com/tomtom215/mixgraph/internal/node"
	"github.com/tomtom215/mixgraph/internal/persist"
)

// ErrNoStorage is returned by the recording helpers when the engine was
// built without a store.
var ErrNoStorage = fmt.Errorf("engine has no stream store: %w", apperr.ErrInvalidArgument)

// NewRecording creates a stream and a catalog entry named name and returns
// a sink for domain that records into it. Add the sink with AddNode; the
// recording is complete once the sink is removed or its domain stopped.
func (e *Engine) NewRecording(ctx context.Context, name, domain string) (*node.StoreSink, catalog.Entry, error) {
	if e.deps.Store == nil || e.deps.Catalog == nil || e.deps.Queue == nil {
		return nil, catalog.Entry{}, ErrNoStorage
	}
	kind, ok := e.kinds[domain]
	if !ok {
		return nil, catalog.Entry{}, fmt.Errorf("%w: %q", graph.ErrUnknownDomain, domain)
	}

	stream, err := e.deps.Store.CreateStream(ctx)
	if err != nil {
		return nil, catalog.Entry{}, err
	}
	id, err := e.deps.Catalog.Register(ctx, name, catalog.KindRecording, stream)
	if err != nil {
		return nil, catalog.Entry{}, err
	}
	entry, err := e.deps.Catalog.Lookup(ctx, id)
	if err != nil {
		return nil, catalog.Entry{}, err
	}

	rec := persist.NewRecorder(stream, 0, e.deps.Queue, e.chunkSize)
	e.log.Info().
		Str("name", name).
		Str("domain", domain).
		Int64("stream_id", int64(stream)).
		Msg("Recording created")
	return node.NewStoreSink(kind, int64(stream), rec), entry, nil
}

// NewPlayback returns an audio source playing the catalog entry id. The
// stream may still be recording.
func (e *Engine) NewPlayback(ctx context.Context, id catalog.MediaID) (*node.StreamSource, error) {
	if e.deps.Store == nil || e.deps.Catalog == nil {
		return nil, ErrNoStorage
	}
	entry, err := e.deps.Catalog.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	// the reader outlives this call
	r, err := e.deps.Store.Open(context.WithoutCancel(ctx), entry.StreamID)
	if err != nil {
		return nil, err
	}
	return node.NewStreamSource(r, 0), nil
}
