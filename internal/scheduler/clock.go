// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package scheduler

import "time"

// SessionClock is the monotonic time base shared by all domains.
type SessionClock struct {
	start time.Time
}

// NewSessionClock starts a clock at zero.
func NewSessionClock() *SessionClock {
	return &SessionClock{start: time.Now()}
}

// Now returns the time elapsed since the session started.
func (c *SessionClock) Now() time.Duration {
	return time.Since(c.start)
}
