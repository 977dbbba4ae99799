// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package streamstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/cache"
	"github.com/tomtom215/mixgraph/internal/database"
	"github.com/tomtom215/mixgraph/internal/logging"
	"github.com/tomtom215/mixgraph/internal/metrics"
)

var tracer = otel.Tracer("github.com/tomtom215/mixgraph/internal/streamstore")

// StreamID identifies a stream.
type StreamID int64

// ChunkInfo describes one committed chunk.
type ChunkInfo struct {
	Offset int64
	Length int64
}

// StreamInfo is a point-in-time view of a stream.
type StreamInfo struct {
	ID        StreamID
	Size      int64
	Complete  bool
	Chunks    int
	CreatedAt time.Time
}

type chunkKey struct {
	stream StreamID
	offset int64
}

// Store is the stream store. It is safe for concurrent use.
type Store struct {
	db         *database.DB
	chunks     *cache.LRU[chunkKey, []byte]
	writerWait time.Duration

	slots  sync.Map // StreamID -> chan struct{}
	failed sync.Map // StreamID -> error
}

// Option configures a Store.
type Option func(*Store)

// WithCache sizes the committed chunk cache. entries <= 0 disables it.
func WithCache(entries int, maxBytes int64) Option {
	return func(s *Store) {
		if entries <= 0 {
			s.chunks = nil
			return
		}
		s.chunks = cache.NewLRU[chunkKey, []byte](entries, maxBytes, func(b []byte) int64 { return int64(len(b)) })
	}
}

// WithWriterWait sets how long an appender queues for a stream's writer slot.
// Zero rejects a concurrent appender immediately with ErrStreamBusy.
func WithWriterWait(d time.Duration) Option {
	return func(s *Store) { s.writerWait = d }
}

// New creates a Store backed by db.
func New(db *database.DB, opts ...Option) *Store {
	s := &Store{
		db:         db,
		writerWait: 2 * time.Second,
	}
	WithCache(256, 256<<20)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateStream allocates a new, empty stream.
func (s *Store) CreateStream(ctx context.Context) (StreamID, error) {
	ctx, span := tracer.Start(ctx, "streamstore.CreateStream")
	defer span.End()

	var id int64
	if err := s.db.Conn().QueryRowContext(ctx, `INSERT INTO streams DEFAULT VALUES RETURNING id`).Scan(&id); err != nil {
		recordSpanError(span, err)
		return 0, fmt.Errorf("create stream: %w", err)
	}
	span.SetAttributes(attribute.Int64("stream_id", id))
	log := logging.ForStream(id)
	log.Debug().Msg("Stream created")
	return StreamID(id), nil
}

// Append commits data as a new chunk at the stream's current size and
// returns the chunk offset. Empty data commits nothing and returns the size.
func (s *Store) Append(ctx context.Context, id StreamID, data []byte) (int64, error) {
	return s.append(ctx, id, -1, data)
}

// AppendAt commits data only if offset equals the stream's current size.
func (s *Store) AppendAt(ctx context.Context, id StreamID, offset int64, data []byte) error {
	if offset < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrOffsetConflict, offset)
	}
	_, err := s.append(ctx, id, offset, data)
	return err
}

func (s *Store) append(ctx context.Context, id StreamID, expected int64, data []byte) (offset int64, err error) {
	ctx, span := tracer.Start(ctx, "streamstore.Append", trace.WithAttributes(
		attribute.Int64("stream_id", int64(id)),
		attribute.Int("bytes", len(data)),
	))
	start := time.Now()
	defer func() {
		metrics.RecordAppend(len(data), time.Since(start), err)
		if err != nil {
			recordSpanError(span, err)
		}
		span.End()
	}()

	if cause, ok := s.failed.Load(id); ok {
		return 0, fmt.Errorf("%w: stream %d: %v", ErrStreamFailed, id, cause)
	}

	release, err := s.acquire(ctx, id)
	if err != nil {
		return 0, err
	}
	defer release()

	err = s.db.WithTx(ctx, nil, func(tx *sql.Tx) error {
		size, complete, err := streamState(ctx, tx, id)
		if err != nil {
			return err
		}
		if complete {
			return fmt.Errorf("%w: stream %d", ErrStreamComplete, id)
		}
		if expected >= 0 && expected != size {
			return fmt.Errorf("%w: offset %d, size %d", ErrOffsetConflict, expected, size)
		}
		offset = size
		if len(data) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO blobs (stream_id, "offset", data) VALUES (?, ?, ?)`, id, size, data); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE streams SET size = size + ? WHERE id = ?`, int64(len(data)), id); err != nil {
			return fmt.Errorf("advance size: %w", err)
		}
		return nil
	})
	if err == nil {
		span.SetAttributes(attribute.Int64("offset", offset))
		return offset, nil
	}
	return 0, s.classifyAppendError(ctx, id, err)
}

// classifyAppendError maps driver errors onto the taxonomy and marks the
// stream failed for anything that looks like a storage fault.
func (s *Store) classifyAppendError(ctx context.Context, id StreamID, err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrOutOfRange),
		errors.Is(err, apperr.ErrClosed):
		return err
	case ctx.Err() != nil:
		return err
	case database.IsTransactionConflict(err):
		return fmt.Errorf("%w: %v", ErrStreamBusy, err)
	case database.IsConstraintViolation(err):
		return fmt.Errorf("%w: %v", ErrOffsetConflict, err)
	}

	s.failed.Store(id, err)
	log := logging.ForStream(int64(id))
	log.Error().Err(err).Msg("Append failed, stream marked failed")
	return fmt.Errorf("%w: stream %d: %v", ErrStreamFailed, id, err)
}

// acquire takes the stream's writer slot.
func (s *Store) acquire(ctx context.Context, id StreamID) (func(), error) {
	v, _ := s.slots.LoadOrStore(id, make(chan struct{}, 1))
	slot := v.(chan struct{})
	release := func() { <-slot }

	select {
	case slot <- struct{}{}:
		return release, nil
	default:
	}
	if s.writerWait <= 0 {
		return nil, fmt.Errorf("%w: stream %d", ErrStreamBusy, id)
	}

	timer := time.NewTimer(s.writerWait)
	defer timer.Stop()
	select {
	case slot <- struct{}{}:
		return release, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: stream %d: waited %s", ErrStreamBusy, id, s.writerWait)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: stream %d: %v", ErrStreamBusy, id, ctx.Err())
	}
}

// Read returns length bytes starting at offset from one consistent snapshot.
func (s *Store) Read(ctx context.Context, id StreamID, offset, length int64) (out []byte, err error) {
	ctx, span := tracer.Start(ctx, "streamstore.Read", trace.WithAttributes(
		attribute.Int64("stream_id", int64(id)),
		attribute.Int64("offset", offset),
		attribute.Int64("length", length),
	))
	defer func() {
		metrics.RecordRead(err)
		if err != nil {
			recordSpanError(span, err)
		}
		span.End()
	}()

	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("%w: offset %d, length %d", ErrOutOfRange, offset, length)
	}

	err = s.db.WithTx(ctx, nil, func(tx *sql.Tx) error {
		size, _, err := streamState(ctx, tx, id)
		if err != nil {
			return err
		}
		// compared as remaining bytes so offset+length cannot overflow
		if offset > size || length > size-offset {
			return fmt.Errorf("%w: offset %d length %d exceeds size %d", ErrOutOfRange, offset, length, size)
		}
		end := offset + length
		out = make([]byte, 0, length)
		if length == 0 {
			return nil
		}

		chunks, err := overlappingChunks(ctx, tx, id, offset, end)
		if err != nil {
			return err
		}

		pos := offset
		for _, c := range chunks {
			if c.Offset > pos {
				return fmt.Errorf("%w: stream %d has a gap at %d", ErrCorrupt, id, pos)
			}
			data, err := s.chunkData(ctx, tx, id, c.Offset)
			if err != nil {
				return err
			}
			from := pos - c.Offset
			to := min(c.Length, end-c.Offset)
			out = append(out, data[from:to]...)
			pos = c.Offset + to
		}
		if pos != end {
			return fmt.Errorf("%w: stream %d covers [%d, %d) of [%d, %d)", ErrCorrupt, id, offset, pos, offset, end)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// chunkData returns a committed chunk, from the cache when possible.
func (s *Store) chunkData(ctx context.Context, tx *sql.Tx, id StreamID, offset int64) ([]byte, error) {
	key := chunkKey{stream: id, offset: offset}
	if s.chunks != nil {
		if data, ok := s.chunks.Get(key); ok {
			metrics.RecordCacheLookup(true)
			return data, nil
		}
		metrics.RecordCacheLookup(false)
	}

	var data []byte
	if err := tx.QueryRowContext(ctx,
		`SELECT data FROM blobs WHERE stream_id = ? AND "offset" = ?`, id, offset).Scan(&data); err != nil {
		return nil, fmt.Errorf("load chunk %d@%d: %w", id, offset, err)
	}
	if s.chunks != nil {
		s.chunks.Add(key, data)
	}
	return data, nil
}

// Size returns the committed size of a stream.
func (s *Store) Size(ctx context.Context, id StreamID) (int64, error) {
	size, _, err := streamState(ctx, s.db.Conn(), id)
	return size, err
}

// Info returns size, completion and chunk count of a stream.
func (s *Store) Info(ctx context.Context, id StreamID) (StreamInfo, error) {
	info := StreamInfo{ID: id}
	err := s.db.WithTx(ctx, nil, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT size, complete, created_at FROM streams WHERE id = ?`, id).Scan(&info.Size, &info.Complete, &info.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", ErrStreamNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("read stream %d: %w", id, err)
		}
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM blobs WHERE stream_id = ?`, id).Scan(&info.Chunks)
	})
	return info, err
}

// Chunks enumerates the committed chunks of a stream in offset order.
func (s *Store) Chunks(ctx context.Context, id StreamID) ([]ChunkInfo, error) {
	var chunks []ChunkInfo
	err := s.db.WithTx(ctx, nil, func(tx *sql.Tx) error {
		size, _, err := streamState(ctx, tx, id)
		if err != nil {
			return err
		}
		chunks, err = overlappingChunks(ctx, tx, id, 0, size)
		return err
	})
	return chunks, err
}

// Complete marks a stream complete. Completing twice is not an error.
func (s *Store) Complete(ctx context.Context, id StreamID) error {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	res, err := s.db.Conn().ExecContext(ctx, `UPDATE streams SET complete = true WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("complete stream %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrStreamNotFound, id)
	}
	log := logging.ForStream(int64(id))
	log.Debug().Msg("Stream complete")
	return nil
}

// Failed reports the storage error that disabled appends to a stream, if any.
func (s *Store) Failed(id StreamID) error {
	if cause, ok := s.failed.Load(id); ok {
		return cause.(error)
	}
	return nil
}

// ClearFailure re-enables appends to a stream after an operator fixed storage.
func (s *Store) ClearFailure(id StreamID) {
	s.failed.Delete(id)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func streamState(ctx context.Context, q querier, id StreamID) (size int64, complete bool, err error) {
	err = q.QueryRowContext(ctx, `SELECT size, complete FROM streams WHERE id = ?`, id).Scan(&size, &complete)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("%w: %d", ErrStreamNotFound, id)
	}
	if err != nil {
		return 0, false, fmt.Errorf("read stream %d: %w", id, err)
	}
	return size, complete, nil
}

// overlappingChunks lists chunks intersecting [from, to) in offset order.
func overlappingChunks(ctx context.Context, tx *sql.Tx, id StreamID, from, to int64) ([]ChunkInfo, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT "offset", octet_length(data)
		FROM blobs
		WHERE stream_id = ? AND "offset" < ? AND "offset" + octet_length(data) > ?
		ORDER BY "offset"`, id, to, from)
	if err != nil {
		return nil, fmt.Errorf("list chunks of %d: %w", id, err)
	}
	defer rows.Close()

	var chunks []ChunkInfo
	for rows.Next() {
		var c ChunkInfo
		if err := rows.Scan(&c.Offset, &c.Length); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
