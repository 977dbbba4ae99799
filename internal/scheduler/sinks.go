// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/mixgraph/internal/graph"
	"github.com/tomtom215/mixgraph/internal/media"
	"github.com/tomtom215/mixgraph/internal/metrics"
	"github.com/tomtom215/mixgraph/internal/node"
)

// ErrEgressClosed faults a sink whose egress was closed when its domain
// stopped. Egresses are single use, so the sink has to be re-added.
var ErrEgressClosed = errors.New("egress closed by domain stop; remove and re-add the sink")

// sinkQueue is the bounded hand-off between the tick and one egress.
type sinkQueue struct {
	id     graph.NodeID
	label  string
	egress node.Egress
	ch     chan *media.Buffer
}

// syncSinks starts a queue and worker for every new sink of the domain and
// retires queues whose sink left the topology. Retired workers flush their
// queue and close the egress.
func (d *Domain) syncSinks(ctx context.Context, topo *graph.Topology, order []graph.NodeID) {
	d.sinksMu.Lock()
	defer d.sinksMu.Unlock()
	if d.synced && d.sinksGen == topo.Generation {
		return
	}

	if d.egress == nil {
		d.egCtx, d.egStop = context.WithCancel(context.WithoutCancel(ctx))
		d.egress = &errgroup.Group{}
	}

	live := make(map[graph.NodeID]struct{})
	for _, id := range order {
		e, _ := topo.Node(id)
		sn, ok := e.Node.(node.SinkNode)
		if !ok {
			continue
		}
		live[id] = struct{}{}
		if _, ok := d.sinks[id]; ok {
			continue
		}
		if _, ok := d.spent[id]; ok {
			if !d.faults.Faulted(id) {
				d.fault(id, d.tick, ErrEgressClosed)
			}
			continue
		}
		q := &sinkQueue{
			id:     id,
			label:  strconv.FormatUint(uint64(id), 10),
			egress: sn.Egress(),
			ch:     make(chan *media.Buffer, d.cfg.SinkQueueSize),
		}
		d.sinks[id] = q
		egCtx := d.egCtx
		d.egress.Go(func() error { return d.deliver(egCtx, q) })
	}

	for id, q := range d.sinks {
		if _, ok := live[id]; !ok {
			d.retire(q)
		}
	}
	for id := range d.spent {
		if _, ok := topo.Node(id); !ok {
			delete(d.spent, id)
		}
	}
	d.sinksGen = topo.Generation
	d.synced = true
}

// retire closes q. Caller holds sinksMu.
func (d *Domain) retire(q *sinkQueue) {
	close(q.ch)
	delete(d.sinks, q.id)
	metrics.SinkQueueDepth.DeleteLabelValues(d.cfg.Name, q.label)
}

// fullSink returns a healthy sink whose queue has no room.
func (d *Domain) fullSink() (graph.NodeID, bool) {
	d.sinksMu.Lock()
	defer d.sinksMu.Unlock()
	for id, q := range d.sinks {
		if len(q.ch) == cap(q.ch) && !d.faults.Faulted(id) {
			return id, true
		}
	}
	return 0, false
}

func (d *Domain) enqueue(id graph.NodeID, buf *media.Buffer) {
	d.sinksMu.Lock()
	q, ok := d.sinks[id]
	d.sinksMu.Unlock()
	if !ok {
		return
	}
	select {
	case q.ch <- buf:
		metrics.SinkQueueDepth.WithLabelValues(d.cfg.Name, q.label).Set(float64(len(q.ch)))
	default:
		// fullSink ran before this tick and a sink gets one buffer per
		// tick, so this only happens if the queue was resized.
		d.log.Warn().Uint64("sink", uint64(id)).Msg("Sink queue full mid-tick, buffer dropped")
	}
}

// deliver is the egress worker of one sink.
func (d *Domain) deliver(ctx context.Context, q *sinkQueue) error {
	for buf := range q.ch {
		metrics.SinkQueueDepth.WithLabelValues(d.cfg.Name, q.label).Set(float64(len(q.ch)))
		if ctx.Err() != nil || d.faults.Faulted(q.id) {
			continue
		}
		if err := q.egress.Deliver(ctx, buf); err != nil {
			d.fault(q.id, d.tickNo.Load(), fmt.Errorf("egress: %w", err))
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.sinksMu.Lock()
	d.spent[q.id] = struct{}{}
	d.sinksMu.Unlock()
	if err := q.egress.Close(ctx); err != nil {
		d.log.Warn().Err(err).Uint64("sink", uint64(q.id)).Msg("Egress close failed")
		return err
	}
	return nil
}

// detachSinks closes every queue and returns a function waiting for the
// workers to finish. The next tick starts fresh workers.
func (d *Domain) detachSinks() func() error {
	d.sinksMu.Lock()
	for _, q := range d.sinks {
		d.retire(q)
	}
	g, stop := d.egress, d.egStop
	d.egress, d.egCtx, d.egStop = nil, nil, nil
	d.synced = false
	d.sinksMu.Unlock()

	return func() error {
		if g == nil {
			return nil
		}
		defer stop()
		return g.Wait()
	}
}

// Drain flushes every sink queue to its egress and closes the egresses.
// Workers still running after the drain timeout or ctx are cancelled and
// their remaining buffers discarded.
func (d *Domain) Drain(ctx context.Context) error {
	d.sinksMu.Lock()
	stop := d.egStop
	d.sinksMu.Unlock()

	wait := d.detachSinks()
	done := make(chan error, 1)
	go func() { done <- wait() }()

	timer := time.NewTimer(d.cfg.DrainTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		if stop != nil {
			stop()
		}
		<-done
		return fmt.Errorf("drain of %s timed out after %s", d.cfg.Name, d.cfg.DrainTimeout)
	case <-ctx.Done():
		if stop != nil {
			stop()
		}
		<-done
		return ctx.Err()
	}
}
