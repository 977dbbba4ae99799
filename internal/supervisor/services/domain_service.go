// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package services

import (
	"context"
	"fmt"

	"github.com/tomtom215/mixgraph/internal/logging"
)

// DomainRunner matches the scheduling loop of a scheduler.Domain.
//
// Satisfied by *scheduler.Domain.
type DomainRunner interface {
	Name() string
	Run(ctx context.Context) error
}

// DomainService runs one scheduling domain as a supervised service.
//
// Run waits for start commands and ticks until stopped, so it only
// returns on cancellation or when a tick fails outright. A restart hard
// stops the domain; it then waits for the next start command.
type DomainService struct {
	domain DomainRunner
	name   string
}

// NewDomainService creates a service wrapper for d.
func NewDomainService(d DomainRunner) *DomainService {
	return &DomainService{
		domain: d,
		name:   "domain-" + d.Name(),
	}
}

// Serve implements suture.Service.
func (s *DomainService) Serve(ctx context.Context) error {
	err := s.domain.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errEarlyExit
	}
	log := logging.ForDomain(s.domain.Name())
	log.Error().Err(err).Msg("Domain loop exited")
	return fmt.Errorf("domain %s: %w", s.domain.Name(), err)
}

// String implements fmt.Stringer for suture's event log.
func (s *DomainService) String() string {
	return s.name
}
