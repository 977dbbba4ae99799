// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names an event kind.
type Type string

const (
	TypeNodeFault       Type = "node.fault"
	TypeDomainState     Type = "domain.state"
	TypeDomainUnderrun  Type = "domain.underrun"
	TypeDomainOverload  Type = "domain.overload"
	TypeGraphChanged    Type = "graph.changed"
	TypeStreamCommitted Type = "stream.committed"
	TypeStreamFailed    Type = "stream.failed"
)

// Event is one status notification.
type Event struct {
	ID       string    `json:"id"`
	Type     Type      `json:"type"`
	Domain   string    `json:"domain,omitempty"`
	NodeID   uint64    `json:"node_id,omitempty"`
	StreamID int64     `json:"stream_id,omitempty"`
	Code     string    `json:"code,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	Time     time.Time `json:"time"`
}

// New creates an event of type t stamped now.
func New(t Type) *Event {
	return &Event{ID: uuid.NewString(), Type: t, Time: time.Now().UTC()}
}

// Topic returns the topic events of type t are published on.
func Topic(prefix string, t Type) string {
	return prefix + "." + string(t)
}
