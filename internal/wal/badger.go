// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package wal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/mixgraph/internal/config"
	"github.com/tomtom215/mixgraph/internal/logging"
)

// MemoryPath opens an in-memory journal. Nothing survives Close.
const MemoryPath = ":memory:"

const prefixPending = "pending:"

var _ Journal = (*BadgerJournal)(nil)

// BadgerJournal implements Journal on BadgerDB.
type BadgerJournal struct {
	db  *badger.DB
	cfg config.WALConfig

	pending  atomic.Int64
	writes   atomic.Int64
	confirms atomic.Int64
	gcRuns   atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the journal at cfg.Path.
func Open(cfg *config.WALConfig) (*BadgerJournal, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.Path == MemoryPath {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.MemTableSize > 0 {
		opts.MemTableSize = cfg.MemTableSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	// BadgerDB needs at least two compactors
	opts.NumCompactors = max(cfg.NumCompactors, 2)
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	j := &BadgerJournal{db: db, cfg: *cfg}
	n, err := j.count()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("count pending chunks: %w", err)
	}
	j.pending.Store(n)
	walPendingEntries.Set(float64(n))

	logging.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Int64("pending", n).
		Msg("Chunk journal opened")
	return j, nil
}

func (j *BadgerJournal) count() (int64, error) {
	var n int64
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (j *BadgerJournal) checkOpen() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	return nil
}

// Write stores r under its stream and offset.
func (j *BadgerJournal) Write(ctx context.Context, r *Record) error {
	start := time.Now()
	defer func() { walWriteLatency.Observe(time.Since(start).Seconds()) }()

	if err := j.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.StreamID < 0 || r.Offset < 0 {
		return ErrNegativeOffset
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	k := key(r.StreamID, r.Offset)
	var replaced bool
	err = j.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		switch {
		case err == nil:
			replaced = true
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(k, data)
	})
	if err != nil {
		walWriteFailures.Inc()
		return fmt.Errorf("write to BadgerDB: %w", err)
	}

	j.writes.Add(1)
	walWritesTotal.Inc()
	if !replaced {
		walPendingEntries.Set(float64(j.pending.Add(1)))
	}
	return nil
}

// Confirm deletes the record at stream and offset.
func (j *BadgerJournal) Confirm(_ context.Context, stream, offset int64) error {
	if err := j.checkOpen(); err != nil {
		return err
	}

	k := key(stream, offset)
	err := j.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrEntryNotFound
			}
			return fmt.Errorf("get pending entry: %w", err)
		}
		return txn.Delete(k)
	})
	if err != nil {
		return err
	}

	j.confirms.Add(1)
	walConfirmsTotal.Inc()
	walPendingEntries.Set(float64(j.pending.Add(-1)))
	return nil
}

// Pending returns every unconfirmed record from one consistent snapshot.
func (j *BadgerJournal) Pending(ctx context.Context) ([]*Record, error) {
	if err := j.checkOpen(); err != nil {
		return nil, err
	}

	var records []*Record
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			})
			if err != nil {
				logging.Warn().
					Err(err).
					Str("key", string(it.Item().Key())).
					Msg("Skipping unreadable journal entry")
				continue
			}
			records = append(records, &r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan pending chunks: %w", err)
	}
	return records, nil
}

// Stats returns the journal counters.
func (j *BadgerJournal) Stats() Stats {
	return Stats{
		Pending:  j.pending.Load(),
		Writes:   j.writes.Load(),
		Confirms: j.confirms.Load(),
		GCRuns:   j.gcRuns.Load(),
	}
}

// Close flushes and closes BadgerDB. Further calls are no-ops.
func (j *BadgerJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("Chunk journal closed")
	return nil
}
