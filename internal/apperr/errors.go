// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package apperr

import "errors"

// Taxonomy sentinels. Wrap these, never compare error strings.
var (
	ErrNotFound        = errors.New("not found")
	ErrOutOfRange      = errors.New("out of range")
	ErrBusy            = errors.New("busy")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrPortOccupied    = errors.New("port occupied")
	ErrCycleDetected   = errors.New("cycle detected")
	ErrUnderrun        = errors.New("underrun")
	ErrOverload        = errors.New("overload")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrClosed          = errors.New("closed")
)

// Stable codes reported to the control plane.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeOutOfRange      = "OUT_OF_RANGE"
	CodeBusy            = "BUSY"
	CodeTypeMismatch    = "TYPE_MISMATCH"
	CodePortOccupied    = "PORT_OCCUPIED"
	CodeCycleDetected   = "CYCLE_DETECTED"
	CodeUnderrun        = "UNDERRUN"
	CodeOverload        = "OVERLOAD"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeClosed          = "CLOSED"
	CodeInternal        = "INTERNAL"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrNotFound, CodeNotFound},
	{ErrOutOfRange, CodeOutOfRange},
	{ErrBusy, CodeBusy},
	{ErrTypeMismatch, CodeTypeMismatch},
	{ErrPortOccupied, CodePortOccupied},
	{ErrCycleDetected, CodeCycleDetected},
	{ErrUnderrun, CodeUnderrun},
	{ErrOverload, CodeOverload},
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrClosed, CodeClosed},
}

// Code returns the taxonomy code for err. A nil error yields an empty string
// and errors outside the taxonomy yield CodeInternal.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
