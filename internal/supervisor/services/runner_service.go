// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package services

import (
	"context"
	"errors"
	"fmt"
)

// Runner is a component whose Run blocks until ctx is cancelled.
//
// Satisfied by:
//   - *persist.Persister
//   - *events.Bus
type Runner interface {
	Run(ctx context.Context) error
}

// errEarlyExit marks a Run that returned nil while ctx was still live.
var errEarlyExit = errors.New("returned before shutdown")

// RunnerService adapts a Runner to suture.Service.
type RunnerService struct {
	run  func(ctx context.Context) error
	name string
}

// NewRunnerService wraps r under the given service name.
func NewRunnerService(name string, r Runner) *RunnerService {
	return &RunnerService{run: r.Run, name: name}
}

// NewPersisterService supervises the stream persister.
func NewPersisterService(r Runner) *RunnerService {
	return NewRunnerService("persister", r)
}

// NewEventBusService supervises the event bus dispatch loop.
func NewEventBusService(r Runner) *RunnerService {
	return NewRunnerService("event-bus", r)
}

// JournalCollector matches the journal's value log collector.
//
// Satisfied by *wal.BadgerJournal.
type JournalCollector interface {
	RunGC(ctx context.Context) error
}

// NewJournalGCService supervises journal garbage collection.
func NewJournalGCService(j JournalCollector) *RunnerService {
	return &RunnerService{run: j.RunGC, name: "journal-gc"}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	err := s.run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errEarlyExit
	}
	return fmt.Errorf("%s: %w", s.name, err)
}

// String implements fmt.Stringer for suture's event log.
func (s *RunnerService) String() string {
	return s.name
}
