// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/graph"
	"github.com/tomtom215/mixgraph/internal/logging"
	"github.com/tomtom215/mixgraph/internal/media"
	"github.com/tomtom215/mixgraph/internal/metrics"
	"github.com/tomtom215/mixgraph/internal/node"
)

// slowdownDecayTicks is the number of consecutive executed ticks after
// which the slowdown factor halves.
const slowdownDecayTicks = 16

// ErrTickDelayed is returned by Step when backpressure postponed the tick.
var ErrTickDelayed = fmt.Errorf("tick delayed: %w", apperr.ErrOverload)

// DomainConfig describes one clock domain.
type DomainConfig struct {
	Name     string
	Interval time.Duration

	// Audio domains
	Frames     int
	SampleRate int
	Channels   int

	// Video domains
	Width  int
	Height int

	Tolerance     time.Duration
	SinkQueueSize int
	MaxSlowdown   int
	LagWarning    int
	DrainTimeout  time.Duration
}

// Observer receives domain status changes. Calls happen on the tick path
// and must not block.
type Observer interface {
	StateChanged(domain string, s State)
	NodeFaulted(domain string, id graph.NodeID, err error)
	Underrun(domain string, id graph.NodeID)
	Overloaded(domain string, slowdown int)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) StateChanged(string, State)              {}
func (NopObserver) NodeFaulted(string, graph.NodeID, error) {}
func (NopObserver) Underrun(string, graph.NodeID)           {}
func (NopObserver) Overloaded(string, int)                  {}

// Deps are the collaborators shared between domains.
type Deps struct {
	Graph    *graph.Graph
	Clock    *SessionClock
	Faults   *Faults
	Bridges  *Bridges
	Observer Observer
}

// DomainStatus is a point-in-time view of a domain.
type DomainStatus struct {
	Name       string               `json:"name"`
	State      State                `json:"state"`
	Tick       uint64               `json:"tick"`
	MediaTime  time.Duration        `json:"media_time"`
	Slowdown   int                  `json:"slowdown"`
	Underruns  uint64               `json:"underruns"`
	Delayed    uint64               `json:"delayed"`
	Overruns   uint64               `json:"overruns"`
	QueueDepth map[graph.NodeID]int `json:"queue_depth"`
}

// Domain is one clock domain's tick loop.
type Domain struct {
	cfg     DomainConfig
	graph   *graph.Graph
	clock   *SessionClock
	faults  *Faults
	bridges *Bridges
	obs     Observer
	log     zerolog.Logger
	lagLog  *rate.Limiter

	lifecycle sync.Mutex
	state     atomic.Int32
	startCh   chan struct{}
	stopCh    chan struct{}

	// closed and replaced on every state change
	changedMu sync.Mutex
	changed   chan struct{}

	// resources of removed nodes, released at the next tick boundary
	retireMu sync.Mutex
	retired  []retiree
	ticking  bool

	// tick loop state
	origin    time.Duration
	tick      uint64
	prev      map[graph.NodeID][]*media.Buffer
	slowdown  int
	goodTicks int

	sinksMu  sync.Mutex
	sinks    map[graph.NodeID]*sinkQueue
	spent    map[graph.NodeID]struct{} // sinks whose egress was closed
	sinksGen uint64
	synced   bool
	egress   *errgroup.Group
	egCtx    context.Context
	egStop   context.CancelFunc

	tickNo    atomic.Uint64
	slowNow   atomic.Int64
	underruns atomic.Uint64
	delayed   atomic.Uint64
	overruns  atomic.Uint64
}

// NewDomain creates an idle domain.
func NewDomain(cfg DomainConfig, deps Deps) *Domain {
	cfg.SinkQueueSize = max(cfg.SinkQueueSize, 1)
	cfg.MaxSlowdown = max(cfg.MaxSlowdown, 1)
	cfg.LagWarning = max(cfg.LagWarning, 1)
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Faults == nil {
		deps.Faults = NewFaults()
	}
	if deps.Bridges == nil {
		deps.Bridges = NewBridges(4)
	}
	if deps.Clock == nil {
		deps.Clock = NewSessionClock()
	}

	d := &Domain{
		cfg:      cfg,
		graph:    deps.Graph,
		clock:    deps.Clock,
		faults:   deps.Faults,
		bridges:  deps.Bridges,
		obs:      deps.Observer,
		log:      logging.ForDomain(cfg.Name),
		lagLog:   rate.NewLimiter(rate.Every(5*time.Second), 1),
		startCh:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}, 1),
		changed:  make(chan struct{}),
		prev:     make(map[graph.NodeID][]*media.Buffer),
		slowdown: 1,
		sinks:    make(map[graph.NodeID]*sinkQueue),
		spent:    make(map[graph.NodeID]struct{}),
	}
	d.slowNow.Store(1)
	metrics.RecordDomainState(cfg.Name, int(Idle))
	return d
}

// Name returns the domain name.
func (d *Domain) Name() string { return d.cfg.Name }

// State returns the lifecycle state.
func (d *Domain) State() State { return State(d.state.Load()) }

func (d *Domain) setState(s State) {
	d.state.Store(int32(s))
	d.changedMu.Lock()
	close(d.changed)
	d.changed = make(chan struct{})
	d.changedMu.Unlock()
	metrics.RecordDomainState(d.cfg.Name, int(s))
	d.obs.StateChanged(d.cfg.Name, s)
	d.log.Info().Str("state", s.String()).Msg("Domain state changed")
}

// Start requests Idle or Stopped to Running. Starting a running domain is
// a no-op; starting a draining one fails with apperr.ErrBusy.
func (d *Domain) Start() error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	switch d.State() {
	case Running:
		return nil
	case Draining:
		return fmt.Errorf("domain %s is draining: %w", d.cfg.Name, apperr.ErrBusy)
	}
	select {
	case d.startCh <- struct{}{}:
	default:
	}
	return nil
}

// Stop requests a graceful drain of a running domain.
func (d *Domain) Stop() {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	select {
	case <-d.startCh:
		// never started
	default:
	}
	if d.State() == Running {
		select {
		case d.stopCh <- struct{}{}:
		default:
		}
	}
}

// AwaitStopped blocks until the domain is neither Running nor Draining,
// or ctx is done.
func (d *Domain) AwaitStopped(ctx context.Context) error {
	for {
		d.changedMu.Lock()
		ch := d.changed
		d.changedMu.Unlock()
		if s := d.State(); s != Running && s != Draining {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run serves the domain until ctx is cancelled. It waits for Start, ticks
// until Stop, drains, and waits for the next Start. Cancelling ctx is a
// hard stop that discards in-flight buffers.
func (d *Domain) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.abort()
			return ctx.Err()
		case <-d.startCh:
		}

		d.lifecycle.Lock()
		d.origin = d.clock.Now()
		d.tick = 0
		d.setState(Running)
		d.lifecycle.Unlock()

		d.setTicking(true)
		err := d.loop(ctx)
		d.closeRetired(d.setTicking(false))
		if err != nil {
			d.abort()
			return err
		}
	}
}

func (d *Domain) loop(ctx context.Context) error {
	next := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.stopCh:
			d.lifecycle.Lock()
			d.setState(Draining)
			d.lifecycle.Unlock()
			err := d.Drain(ctx)
			d.lifecycle.Lock()
			d.setState(Stopped)
			d.lifecycle.Unlock()
			if err != nil {
				d.log.Warn().Err(err).Msg("Drain incomplete")
			}
			return nil
		case <-timer.C:
		}

		if err := d.Step(ctx); err != nil && !errors.Is(err, ErrTickDelayed) {
			return err
		}

		next = next.Add(d.cfg.Interval * time.Duration(d.slowdown))
		wait := time.Until(next)
		if behind := -wait; behind > d.cfg.Interval*time.Duration(d.cfg.LagWarning) {
			if d.lagLog.Allow() {
				d.log.Warn().
					Dur("behind", behind).
					Uint64("tick", d.tick).
					Msg("Domain lagging behind wall clock, resynchronizing")
			}
			next = time.Now()
			wait = 0
		}
		timer.Reset(max(wait, 0))
	}
}

// Step executes exactly one tick, or returns ErrTickDelayed if a sink
// queue is full.
func (d *Domain) Step(ctx context.Context) error {
	// retired before this snapshot, so no longer part of it
	d.closeRetired(d.takeRetired())
	topo := d.graph.Snapshot()
	order := topo.OrderFor(d.cfg.Name)
	d.syncSinks(ctx, topo, order)

	if full, ok := d.fullSink(); ok {
		d.backoff(full)
		return ErrTickDelayed
	}

	started := time.Now()
	clk := d.clockFor(d.tick)
	d.pull(ctx, topo, order, clk)
	outputs := d.execute(topo, order, clk)
	d.prev = outputs

	d.tick++
	d.tickNo.Store(d.tick)
	took := time.Since(started)
	metrics.RecordTick(d.cfg.Name, took, d.cfg.Interval)
	if took > d.cfg.Interval {
		d.overruns.Add(1)
	}
	d.decay()
	return nil
}

func (d *Domain) clockFor(tick uint64) node.Clock {
	return node.Clock{
		Domain:     d.cfg.Name,
		Tick:       tick,
		Time:       d.origin + time.Duration(tick)*d.cfg.Interval,
		Wall:       d.clock.Now(),
		Interval:   d.cfg.Interval,
		Tolerance:  d.cfg.Tolerance,
		Frames:     d.cfg.Frames,
		SampleRate: d.cfg.SampleRate,
		Channels:   d.cfg.Channels,
		Width:      d.cfg.Width,
		Height:     d.cfg.Height,
	}
}

// pull runs every source's ingest step concurrently.
func (d *Domain) pull(ctx context.Context, topo *graph.Topology, order []graph.NodeID, clk node.Clock) {
	type result struct {
		id       graph.NodeID
		underrun bool
		err      error
	}
	var (
		g       errgroup.Group
		mu      sync.Mutex
		results []result
	)
	for _, id := range order {
		e, _ := topo.Node(id)
		p, ok := e.Node.(node.Puller)
		if !ok || d.faults.Faulted(id) {
			continue
		}
		g.Go(func() error {
			underrun, err := safePull(ctx, p, clk)
			mu.Lock()
			results = append(results, result{id: id, underrun: underrun, err: err})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		switch {
		case r.err != nil:
			d.fault(r.id, clk.Tick, r.err)
		case r.underrun:
			d.underruns.Add(1)
			metrics.RecordUnderrun(d.cfg.Name)
			d.obs.Underrun(d.cfg.Name, r.id)
		}
	}
}

func safePull(ctx context.Context, p node.Puller, clk node.Clock) (underrun bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source panicked: %v", r)
		}
	}()
	return p.Pull(ctx, clk)
}

// execute runs the domain's nodes in order and returns their outputs.
func (d *Domain) execute(topo *graph.Topology, order []graph.NodeID, clk node.Clock) map[graph.NodeID][]*media.Buffer {
	outputs := make(map[graph.NodeID][]*media.Buffer, len(order))

	for _, id := range order {
		e, _ := topo.Node(id)
		if d.faults.Faulted(id) {
			continue
		}

		in := make([]*media.Buffer, len(e.Shape.Inputs))
		for p := range in {
			in[p] = d.input(topo, e, p, outputs, clk)
		}

		started := time.Now()
		out, err := node.ProcessSafe(e.Node, clk, in)
		metrics.RecordNodeProcess(d.cfg.Name, e.Node.Variant().String(), time.Since(started))
		if err != nil {
			d.fault(id, clk.Tick, err)
			continue
		}
		outputs[id] = out

		if _, ok := e.Node.(node.SinkNode); ok && len(in) > 0 && in[0] != nil {
			d.enqueue(id, in[0])
		}
		d.publish(topo, id, out)
	}
	return outputs
}

// input resolves the buffer feeding port p of e.
func (d *Domain) input(topo *graph.Topology, e *graph.Entry, p int, outputs map[graph.NodeID][]*media.Buffer, clk node.Clock) *media.Buffer {
	c, ok := topo.Input(graph.Endpoint{Node: e.ID, Port: p})
	if !ok {
		return nil
	}
	src, ok := topo.Node(c.From.Node)
	if !ok {
		return nil
	}
	if src.Domain != d.cfg.Name {
		return d.bridges.For(c, src.Domain, d.cfg.Name).Take(clk.Time)
	}
	if out, ok := outputs[c.From.Node]; ok {
		return portBuffer(out, c.From.Port)
	}
	if e.IsFeedback(p) {
		return portBuffer(d.prev[c.From.Node], c.From.Port)
	}
	return nil
}

// publish forwards outputs that leave the domain.
func (d *Domain) publish(topo *graph.Topology, id graph.NodeID, out []*media.Buffer) {
	for _, c := range topo.Outputs(id) {
		dst, ok := topo.Node(c.To.Node)
		if !ok || dst.Domain == d.cfg.Name {
			continue
		}
		if buf := portBuffer(out, c.From.Port); buf != nil {
			d.bridges.For(c, d.cfg.Name, dst.Domain).Publish(buf)
		}
	}
}

func portBuffer(out []*media.Buffer, port int) *media.Buffer {
	if port < 0 || port >= len(out) {
		return nil
	}
	return out[port]
}

func (d *Domain) fault(id graph.NodeID, tick uint64, err error) {
	if !d.faults.Mark(id, Fault{Domain: d.cfg.Name, Tick: tick, Reason: err.Error(), At: time.Now()}) {
		return
	}
	metrics.RecordNodeFault(d.cfg.Name)
	d.obs.NodeFaulted(d.cfg.Name, id, err)
	d.log.Error().Err(err).Uint64("node_id", uint64(id)).Uint64("tick", tick).Msg("Node faulted")
}

// backoff doubles the slowdown after a delayed tick.
func (d *Domain) backoff(full graph.NodeID) {
	d.goodTicks = 0
	d.slowdown = min(d.slowdown*2, d.cfg.MaxSlowdown)
	d.slowNow.Store(int64(d.slowdown))
	d.delayed.Add(1)
	metrics.RecordDelayedTick(d.cfg.Name, d.slowdown)
	d.obs.Overloaded(d.cfg.Name, d.slowdown)
	d.log.Debug().Uint64("sink", uint64(full)).Int("slowdown", d.slowdown).Msg("Sink queue full, tick delayed")
}

// decay halves the slowdown after enough executed ticks.
func (d *Domain) decay() {
	if d.slowdown == 1 {
		return
	}
	d.goodTicks++
	if d.goodTicks >= slowdownDecayTicks {
		d.goodTicks = 0
		d.slowdown /= 2
		d.slowNow.Store(int64(d.slowdown))
		metrics.RecordSlowdown(d.cfg.Name, d.slowdown)
	}
}

type retiree struct {
	id graph.NodeID
	c  node.Closer
}

// Retire closes the resources of a node already removed from the graph.
// A ticking domain closes it at its next tick boundary so an in-flight
// pull or process never sees it closed; otherwise it is closed now.
func (d *Domain) Retire(id graph.NodeID, c node.Closer) {
	d.retireMu.Lock()
	if d.ticking {
		d.retired = append(d.retired, retiree{id: id, c: c})
		d.retireMu.Unlock()
		return
	}
	d.retireMu.Unlock()
	d.closeRetired([]retiree{{id: id, c: c}})
}

func (d *Domain) takeRetired() []retiree {
	d.retireMu.Lock()
	defer d.retireMu.Unlock()
	r := d.retired
	d.retired = nil
	return r
}

// setTicking returns what is still waiting to be closed when ticking ends.
func (d *Domain) setTicking(on bool) []retiree {
	d.retireMu.Lock()
	defer d.retireMu.Unlock()
	d.ticking = on
	if on {
		return nil
	}
	r := d.retired
	d.retired = nil
	return r
}

func (d *Domain) closeRetired(rs []retiree) {
	for _, r := range rs {
		if err := r.c.Close(); err != nil {
			d.log.Warn().Err(err).Uint64("node_id", uint64(r.id)).Msg("Node close failed")
		}
	}
}

// Status returns a snapshot of the domain's counters.
func (d *Domain) Status() DomainStatus {
	tick := d.tickNo.Load()
	st := DomainStatus{
		Name:       d.cfg.Name,
		State:      d.State(),
		Tick:       tick,
		MediaTime:  time.Duration(tick) * d.cfg.Interval,
		Slowdown:   int(d.slowNow.Load()),
		Underruns:  d.underruns.Load(),
		Delayed:    d.delayed.Load(),
		Overruns:   d.overruns.Load(),
		QueueDepth: make(map[graph.NodeID]int),
	}
	d.sinksMu.Lock()
	for id, q := range d.sinks {
		st.QueueDepth[id] = len(q.ch)
	}
	d.sinksMu.Unlock()
	return st
}

// abort hard-stops egress workers, discarding queued buffers.
func (d *Domain) abort() {
	d.sinksMu.Lock()
	if d.egStop != nil {
		d.egStop()
	}
	d.sinksMu.Unlock()
	if err := d.detachSinks()(); err != nil {
		d.log.Debug().Err(err).Msg("Egress aborted")
	}
	if d.State() != Idle {
		d.lifecycle.Lock()
		d.setState(Stopped)
		d.lifecycle.Unlock()
	}
}
