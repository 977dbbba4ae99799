// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/mixgraph/internal/config"
	"github.com/tomtom215/mixgraph/internal/logging"
	"github.com/tomtom215/mixgraph/internal/metrics"
	"github.com/tomtom215/mixgraph/internal/streamstore"
	"github.com/tomtom215/mixgraph/internal/wal"
)

// Chunk outcomes, used as metric labels.
const (
	resultCommitted = "committed"
	resultDuplicate = "duplicate"
	resultDeferred  = "deferred"
	resultFailed    = "failed"
)

// drainTimeout bounds how long Run keeps committing queued chunks after
// its context is cancelled.
const drainTimeout = 5 * time.Second

// Observer is told about committed and failed streams.
type Observer interface {
	StreamCommitted(id streamstore.StreamID, size int64, final bool)
	StreamFailed(id streamstore.StreamID, err error)
}

type nopObserver struct{}

func (nopObserver) StreamCommitted(streamstore.StreamID, int64, bool) {}
func (nopObserver) StreamFailed(streamstore.StreamID, error)          {}

// Persister drains the queue into the store.
type Persister struct {
	store   *streamstore.Store
	journal wal.Journal
	queue   *Queue
	breaker *gobreaker.CircuitBreaker[struct{}]
	obs     Observer
	retry   time.Duration
	log     zerolog.Logger
}

// Option configures a Persister.
type Option func(*Persister)

// WithObserver reports stream outcomes to obs.
func WithObserver(obs Observer) Option {
	return func(p *Persister) { p.obs = obs }
}

// WithRetryInterval sets the wait between attempts while the store is
// unavailable.
func WithRetryInterval(d time.Duration) Option {
	return func(p *Persister) { p.retry = d }
}

// NewPersister creates the queue consumer. A nil journal disables
// journaling.
func NewPersister(store *streamstore.Store, journal wal.Journal, queue *Queue, cfg config.PersistConfig, opts ...Option) *Persister {
	if journal == nil {
		journal = wal.Nop{}
	}
	p := &Persister{
		store:   store,
		journal: journal,
		queue:   queue,
		obs:     nopObserver{},
		retry:   100 * time.Millisecond,
		log:     logging.WithComponent("persister"),
	}
	for _, opt := range opts {
		opt(p)
	}

	failures := max(cfg.BreakerFailures, 1)
	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "stream-store",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// Offset and state conflicts are answers, not outages.
			return err == nil ||
				errors.Is(err, streamstore.ErrOffsetConflict) ||
				errors.Is(err, streamstore.ErrStreamComplete) ||
				errors.Is(err, streamstore.ErrStreamFailed) ||
				errors.Is(err, streamstore.ErrStreamNotFound) ||
				errors.Is(err, streamstore.ErrStreamBusy)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Stream store circuit breaker state changed")
		},
	})
	return p
}

// Breaker returns the breaker state for status reporting.
func (p *Persister) Breaker() string { return p.breaker.State().String() }

// Run consumes the queue until ctx is cancelled, then commits whatever is
// already queued.
func (p *Persister) Run(ctx context.Context) error {
	p.log.Info().Int("queue_size", p.queue.Cap()).Msg("Persister started")
	for {
		c, err := p.queue.receive(ctx)
		if err != nil {
			p.drain()
			return err
		}
		if err := p.handle(ctx, c, false); err != nil && ctx.Err() != nil {
			// cancelled mid-chunk; the journal still has it
			p.drain()
			return ctx.Err()
		}
	}
}

func (p *Persister) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	n := 0
	for {
		c, ok := p.queue.tryReceive()
		if !ok {
			break
		}
		if err := p.handle(ctx, c, false); err != nil && ctx.Err() != nil {
			p.log.Warn().Int("drained", n).Msg("Persister drain timed out, chunks left in journal")
			return
		}
		n++
	}
	if n > 0 {
		p.log.Info().Int("drained", n).Msg("Persister drained queue")
	}
}

// Recover replays every pending journal entry. It runs before Run.
func (p *Persister) Recover(ctx context.Context) (int, error) {
	pending, err := p.journal.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("read journal: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	replayed := 0
	for _, r := range pending {
		c := &Chunk{
			StreamID: streamstore.StreamID(r.StreamID),
			Offset:   r.Offset,
			Data:     r.Data,
			Final:    r.Final,
		}
		if err := p.handle(ctx, c, true); err != nil {
			if ctx.Err() != nil {
				return replayed, ctx.Err()
			}
			continue
		}
		replayed++
	}
	p.log.Info().
		Int("pending", len(pending)).
		Int("replayed", replayed).
		Msg("Journal recovery complete")
	return replayed, nil
}

// handle persists one chunk. A returned error means the chunk is still in
// the journal.
func (p *Persister) handle(ctx context.Context, c *Chunk, journaled bool) error {
	log := logging.ForStream(int64(c.StreamID))

	if !journaled {
		rec := &wal.Record{StreamID: int64(c.StreamID), Offset: c.Offset, Data: c.Data, Final: c.Final}
		if err := p.journal.Write(ctx, rec); err != nil {
			log.Warn().Err(err).Int64("offset", c.Offset).Msg("Chunk journal write failed, appending unjournaled")
		}
	}

	if cause := p.store.Failed(c.StreamID); cause != nil {
		metrics.PersistChunks.WithLabelValues(resultDeferred).Inc()
		return cause
	}

	result, err := p.commit(ctx, c)
	metrics.PersistChunks.WithLabelValues(result).Inc()
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Int64("offset", c.Offset).Msg("Chunk not persisted")
			p.obs.StreamFailed(c.StreamID, err)
		}
		return err
	}

	// A final chunk stays journaled until the stream is marked complete, so
	// a crash in between is finished by Recover.
	if c.Final {
		if err := p.store.Complete(ctx, c.StreamID); err != nil {
			log.Error().Err(err).Msg("Failed to mark stream complete")
			return err
		}
	}
	if err := p.journal.Confirm(ctx, int64(c.StreamID), c.Offset); err != nil && !errors.Is(err, wal.ErrEntryNotFound) {
		log.Warn().Err(err).Int64("offset", c.Offset).Msg("Chunk journal confirm failed")
	}
	p.obs.StreamCommitted(c.StreamID, c.End(), c.Final)
	return nil
}

// commit appends c, waiting out an open breaker or a busy writer slot.
func (p *Persister) commit(ctx context.Context, c *Chunk) (string, error) {
	if len(c.Data) == 0 {
		return resultCommitted, nil
	}
	for {
		_, err := p.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, p.store.AppendAt(ctx, c.StreamID, c.Offset, c.Data)
		})
		switch {
		case err == nil:
			return resultCommitted, nil
		case errors.Is(err, gobreaker.ErrOpenState),
			errors.Is(err, gobreaker.ErrTooManyRequests),
			errors.Is(err, streamstore.ErrStreamBusy):
			select {
			case <-ctx.Done():
				return resultDeferred, ctx.Err()
			case <-time.After(p.retry):
			}
		case errors.Is(err, streamstore.ErrOffsetConflict),
			errors.Is(err, streamstore.ErrStreamComplete):
			return p.duplicate(ctx, c, err)
		default:
			return resultFailed, err
		}
	}
}

// duplicate accepts c if the store already holds identical bytes at its
// offset, as happens when a chunk is replayed after a crash.
func (p *Persister) duplicate(ctx context.Context, c *Chunk, cause error) (string, error) {
	size, err := p.store.Size(ctx, c.StreamID)
	if err != nil {
		return resultFailed, err
	}
	if c.End() > size {
		return resultFailed, cause
	}
	have, err := p.store.Read(ctx, c.StreamID, c.Offset, int64(len(c.Data)))
	if err != nil {
		return resultFailed, err
	}
	if !bytes.Equal(have, c.Data) {
		return resultFailed, fmt.Errorf("chunk at %d differs from committed data: %w", c.Offset, cause)
	}
	return resultDuplicate, nil
}
