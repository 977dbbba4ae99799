// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package wal

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/mixgraph/internal/logging"
)

// RunGC reclaims value log space every GCInterval until ctx is done.
// Confirmed chunks are deleted keys whose values stay on disk until the
// value log is rewritten.
func (j *BadgerJournal) RunGC(ctx context.Context) error {
	if j.cfg.GCInterval <= 0 || j.cfg.Path == MemoryPath {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(j.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := j.collect(); err != nil {
				logging.Warn().Err(err).Msg("Journal value log GC failed")
			}
		}
	}
}

// collect rewrites value log files until badger reports nothing to do.
func (j *BadgerJournal) collect() error {
	if err := j.checkOpen(); err != nil {
		return err
	}
	ratio := j.cfg.GCRatio
	if ratio <= 0 {
		ratio = 0.5
	}

	start := time.Now()
	rewrites := 0
	for {
		err := j.db.RunValueLogGC(ratio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return err
		}
		rewrites++
	}

	j.gcRuns.Add(1)
	walGCRuns.Inc()
	lsm, vlog := j.db.Size()
	walDBSizeBytes.Set(float64(lsm + vlog))
	logging.Debug().
		Int("rewrites", rewrites).
		Dur("took", time.Since(start)).
		Int64("size_bytes", lsm+vlog).
		Msg("Journal value log GC complete")
	return nil
}
