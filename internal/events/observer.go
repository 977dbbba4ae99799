// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package events

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/graph"
	"github.com/tomtom215/mixgraph/internal/persist"
	"github.com/tomtom215/mixgraph/internal/scheduler"
	"github.com/tomtom215/mixgraph/internal/streamstore"
)

// Observer turns scheduler and persister callbacks into events. Underrun
// and overload events are limited per domain, since both can fire every
// tick.
type Observer struct {
	bus *Bus

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var (
	_ scheduler.Observer = (*Observer)(nil)
	_ persist.Observer   = (*Observer)(nil)
)

// NewObserver publishes to bus.
func NewObserver(bus *Bus) *Observer {
	return &Observer{bus: bus, limiters: make(map[string]*rate.Limiter)}
}

func (o *Observer) allow(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Second), 5)
		o.limiters[key] = l
	}
	return l.Allow()
}

func (o *Observer) StateChanged(domain string, s scheduler.State) {
	e := New(TypeDomainState)
	e.Domain = domain
	e.Detail = s.String()
	o.bus.Publish(e)
}

func (o *Observer) NodeFaulted(domain string, id graph.NodeID, err error) {
	e := New(TypeNodeFault)
	e.Domain = domain
	e.NodeID = uint64(id)
	e.Code = apperr.Code(err)
	e.Detail = err.Error()
	o.bus.Publish(e)
}

func (o *Observer) Underrun(domain string, id graph.NodeID) {
	if !o.allow("underrun:" + domain) {
		return
	}
	e := New(TypeDomainUnderrun)
	e.Domain = domain
	e.NodeID = uint64(id)
	o.bus.Publish(e)
}

func (o *Observer) Overloaded(domain string, slowdown int) {
	if !o.allow("overload:" + domain) {
		return
	}
	e := New(TypeDomainOverload)
	e.Domain = domain
	e.Detail = "slowdown=" + strconv.Itoa(slowdown)
	o.bus.Publish(e)
}

func (o *Observer) StreamCommitted(id streamstore.StreamID, size int64, final bool) {
	e := New(TypeStreamCommitted)
	e.StreamID = int64(id)
	e.Detail = "size=" + strconv.FormatInt(size, 10)
	if final {
		e.Detail += " final"
	}
	o.bus.Publish(e)
}

func (o *Observer) StreamFailed(id streamstore.StreamID, err error) {
	e := New(TypeStreamFailed)
	e.StreamID = int64(id)
	e.Code = apperr.Code(err)
	e.Detail = err.Error()
	o.bus.Publish(e)
}

// GraphChanged reports a topology mutation.
func (o *Observer) GraphChanged(op string, generation uint64) {
	e := New(TypeGraphChanged)
	e.Detail = op + " generation=" + strconv.FormatUint(generation, 10)
	o.bus.Publish(e)
}
