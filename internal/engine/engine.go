// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/catalog"
	"github.com/tomtom215/mixgraph/internal/config"
	"github.com/tomtom215/mixgraph/internal/events"
	"github.com/tomtom215/mixgraph/internal/graph"
	"github.com/tomtom215/mixgraph/internal/logging"
	"github.com/tomtom215/mixgraph/internal/media"
	"github.com/tomtom215/mixgraph/internal/metrics"
	"github.com/tomtom215/mixgraph/internal/persist"
	"github.com/tomtom215/mixgraph/internal/scheduler"
	"github.com/tomtom215/mixgraph/internal/streamstore"
)

// Domain names.
const (
	DomainAudio = "audio"
	DomainVideo = "video"
)

// defaultCommandTimeout applies when the config leaves it unset.
const defaultCommandTimeout = 5 * time.Second

var (
	// ErrClosed is returned for commands submitted after Close.
	ErrClosed = fmt.Errorf("engine %w", apperr.ErrClosed)

	// ErrQueueFull is returned when the command queue has no room.
	ErrQueueFull = fmt.Errorf("command queue full: %w", apperr.ErrBusy)

	// ErrNoDomains is returned by New when every domain is disabled.
	ErrNoDomains = fmt.Errorf("no clock domain enabled: %w", apperr.ErrInvalidArgument)
)

// Deps are the engine's collaborators. Store, Catalog and Queue are only
// needed for recordings and playback, Workspaces for Save and Load; Events
// is optional.
type Deps struct {
	Store      *streamstore.Store
	Catalog    *catalog.Catalog
	Queue      *persist.Queue
	Workspaces WorkspaceStore
	Events     *events.Observer
}

// Engine runs the processing graph.
type Engine struct {
	cfg  config.EngineConfig
	deps Deps

	chunkSize int
	graph     *graph.Graph
	clock     *scheduler.SessionClock
	faults    *scheduler.Faults
	bridges   *scheduler.Bridges
	domains   map[string]*scheduler.Domain
	kinds     map[string]media.Kind
	log       zerolog.Logger

	cmds      chan command
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

type command struct {
	ctx   context.Context
	op    string
	apply func(ctx context.Context) error
	reply chan error
}

// New builds the graph and one domain per enabled section of cfg and
// starts the control goroutine.
func New(cfg *config.Config, deps Deps) (*Engine, error) {
	e := &Engine{
		cfg:       cfg.Engine,
		deps:      deps,
		chunkSize: cfg.Store.ChunkSize,
		clock:     scheduler.NewSessionClock(),
		faults:    scheduler.NewFaults(),
		bridges:   scheduler.NewBridges(cfg.Engine.BridgeCapacity),
		domains:   make(map[string]*scheduler.Domain),
		kinds:     make(map[string]media.Kind),
		log:       logging.WithComponent("engine"),
		cmds:      make(chan command, max(cfg.Engine.CommandQueueSize, 1)),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	if e.cfg.CommandTimeout <= 0 {
		e.cfg.CommandTimeout = defaultCommandTimeout
	}

	var configs []scheduler.DomainConfig
	if cfg.Audio.Enabled {
		configs = append(configs, scheduler.DomainConfig{
			Name:          DomainAudio,
			Interval:      cfg.Audio.TickInterval(),
			Frames:        cfg.Audio.FramesPerTick(),
			SampleRate:    cfg.Audio.SampleRate,
			Channels:      cfg.Audio.Channels,
			Tolerance:     cfg.Audio.Tolerance,
			SinkQueueSize: cfg.Audio.SinkQueueSize,
			MaxSlowdown:   cfg.Audio.MaxSlowdown,
		})
		e.kinds[DomainAudio] = media.Audio
	}
	if cfg.Video.Enabled {
		configs = append(configs, scheduler.DomainConfig{
			Name:          DomainVideo,
			Interval:      cfg.Video.FrameInterval(),
			Width:         cfg.Video.Width,
			Height:        cfg.Video.Height,
			Tolerance:     cfg.Video.Tolerance,
			SinkQueueSize: cfg.Video.SinkQueueSize,
			MaxSlowdown:   cfg.Video.MaxSlowdown,
		})
		e.kinds[DomainVideo] = media.Video
	}
	if len(configs) == 0 {
		return nil, ErrNoDomains
	}

	names := make([]string, 0, len(configs))
	for _, dc := range configs {
		names = append(names, dc.Name)
	}
	e.graph = graph.New(names...)

	sdeps := scheduler.Deps{Graph: e.graph, Clock: e.clock, Faults: e.faults, Bridges: e.bridges}
	if deps.Events != nil {
		sdeps.Observer = deps.Events
	}
	for _, dc := range configs {
		dc.LagWarning = cfg.Engine.LagWarning
		dc.DrainTimeout = cfg.Engine.DrainTimeout
		e.domains[dc.Name] = scheduler.NewDomain(dc, sdeps)
	}

	go e.control()
	e.log.Info().Strs("domains", names).Msg("Engine created")
	return e, nil
}

// Domains returns the clock domains ordered by name.
func (e *Engine) Domains() []*scheduler.Domain {
	out := make([]*scheduler.Domain, 0, len(e.domains))
	for _, d := range e.domains {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *scheduler.Domain) int {
		return cmp.Compare(a.Name(), b.Name())
	})
	return out
}

// Domain returns the named domain.
func (e *Engine) Domain(name string) (*scheduler.Domain, bool) {
	d, ok := e.domains[name]
	return d, ok
}

// Run serves every domain until ctx is cancelled or one fails.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, d := range e.Domains() {
		g.Go(func() error { return d.Run(ctx) })
	}
	return g.Wait()
}

// Shutdown gracefully stops every domain and waits, bounded by ctx, until
// each has drained its sink queues and closed its egresses. Recordings are
// finalized this way; cancelling the Run context instead discards queued
// buffers. Domains still draining when ctx ends are reported in the error.
func (e *Engine) Shutdown(ctx context.Context) error {
	domains := e.Domains()
	for _, d := range domains {
		d.Stop()
	}
	var errs []error
	for _, d := range domains {
		if err := d.AwaitStopped(ctx); err != nil {
			errs = append(errs, fmt.Errorf("domain %s: %w", d.Name(), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	e.log.Info().Msg("All domains drained")
	return nil
}

// Close stops the control goroutine. Queued commands fail with ErrClosed.
// It does not stop the domains; cancel the context passed to Run.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
		<-e.stopped
		e.log.Info().Msg("Engine closed")
	})
	return nil
}

func (e *Engine) control() {
	defer close(e.stopped)
	for {
		select {
		case <-e.done:
			for {
				select {
				case cmd := <-e.cmds:
					cmd.reply <- ErrClosed
				default:
					return
				}
			}
		case cmd := <-e.cmds:
			if err := cmd.ctx.Err(); err != nil {
				cmd.reply <- err
				continue
			}
			cmd.reply <- cmd.apply(cmd.ctx)
		}
	}
}

// submit queues a command and waits for its result. A command whose
// caller already gave up is skipped by the control goroutine.
func (e *Engine) submit(ctx context.Context, op string, apply func(ctx context.Context) error) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.CommandTimeout)
	defer cancel()
	cmd := command{ctx: ctx, op: op, apply: apply, reply: make(chan error, 1)}

	select {
	case e.cmds <- cmd:
	default:
		metrics.CommandsRejected.Inc()
		return fmt.Errorf("%s: %w", op, ErrQueueFull)
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: no reply within %s: %w", op, e.cfg.CommandTimeout, apperr.ErrBusy)
		}
		return ctx.Err()
	}
}
