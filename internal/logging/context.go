// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ctxKey uint8

const (
	keyCorrelation ctxKey = iota
	keyRequest
	keyLogger
)

func stringValue(ctx context.Context, k ctxKey) string {
	s, _ := ctx.Value(k).(string)
	return s
}

// GenerateCorrelationID returns a short random ID (8 hex characters).
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID attaches a correlation ID to ctx. Engine
// commands carry one from the caller into the domain goroutine.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyCorrelation, id)
}

// ContextWithNewCorrelationID generates a correlation ID unless ctx has one.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	if stringValue(ctx, keyCorrelation) != "" {
		return ctx
	}
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

func CorrelationIDFromContext(ctx context.Context) string { return stringValue(ctx, keyCorrelation) }

// ContextWithRequestID attaches an ops HTTP request ID to ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequest, id)
}

func RequestIDFromContext(ctx context.Context) string { return stringValue(ctx, keyRequest) }

// ContextWithLogger overrides the logger Ctx starts from.
//
//nolint:gocritic // zerolog.Logger is passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, keyLogger, logger)
}

// LoggerFromContext returns the logger stored in ctx, or the global one.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(keyLogger).(zerolog.Logger); ok {
		return l
	}
	return Logger()
}

// Ctx returns a logger carrying whichever of correlation_id and
// request_id ctx holds.
//
//	logging.Ctx(ctx).Info().Msg("Node added")
func Ctx(ctx context.Context) *zerolog.Logger {
	lc := LoggerFromContext(ctx).With()
	for _, f := range [...]struct {
		key   ctxKey
		field string
	}{{keyCorrelation, "correlation_id"}, {keyRequest, "request_id"}} {
		if v := stringValue(ctx, f.key); v != "" {
			lc = lc.Str(f.field, v)
		}
	}
	l := lc.Logger()
	return &l
}
