// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Package graph owns the node arena and the connections between node ports.

Nodes live in a map keyed by a stable NodeID, and connections are pairs of
(NodeID, port) endpoints, so removal and rewiring never chase pointers.

# Mutation

Every mutation copies the current Topology, applies the change, validates
the result and recomputes the execution order. Only a fully valid copy is
published, through an atomic pointer, so a rejected mutation leaves the
published topology untouched. Writers are serialized; readers such as the
scheduler load the pointer once per tick and never lock.

Validation rules:

  - an input port accepts at most one connection (ErrPortOccupied)
  - both ends of a connection carry the same media kind (ErrTypeMismatch)
  - a node with live connections cannot be removed (ErrBusy)
  - ignoring feedback ports the graph is acyclic (ErrCycleDetected)

# Ordering

Order is a stable topological sort: among the nodes whose inputs are all
satisfied, the one added earliest runs first. Adding or removing an
unrelated node therefore does not reorder any other node, and mixer inputs
see the same ordering across runs with identical topology.

Feedback ports, declared only by nodes with a positive fixed latency, do not
constrain the order. Their input is the upstream output from the current
tick if it already ran, otherwise from the previous one.
*/
package graph
