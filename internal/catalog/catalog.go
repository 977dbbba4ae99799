// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/database"
	"github.com/tomtom215/mixgraph/internal/database/query"
	"github.com/tomtom215/mixgraph/internal/logging"
	"github.com/tomtom215/mixgraph/internal/streamstore"
)

// Well-known kinds. Any non-empty kind is accepted.
const (
	KindRecording = "recording"
	KindClip      = "clip"
	KindExport    = "export"
)

// MediaID identifies a catalog entry.
type MediaID int64

// Entry is one catalog row.
type Entry struct {
	ID        MediaID              `json:"id"`
	Name      string               `json:"name"`
	Kind      string               `json:"kind"`
	StreamID  streamstore.StreamID `json:"stream_id"`
	CreatedAt time.Time            `json:"created_at"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Kinds      []string
	Streams    []streamstore.StreamID
	NamePrefix string
	From, To   *time.Time
}

// ErrMediaNotFound is returned for an unknown media id.
var ErrMediaNotFound = fmt.Errorf("media %w", apperr.ErrNotFound)

// Catalog is the media catalog.
type Catalog struct {
	db        *database.DB
	store     *streamstore.Store
	chunkSize int
}

// New creates a Catalog. chunkSize is used by Import.
func New(db *database.DB, store *streamstore.Store, chunkSize int) *Catalog {
	return &Catalog{db: db, store: store, chunkSize: chunkSize}
}

// Register creates an entry referencing an existing stream.
func (c *Catalog) Register(ctx context.Context, name, kind string, stream streamstore.StreamID) (MediaID, error) {
	if name == "" || kind == "" {
		return 0, fmt.Errorf("%w: media name and kind are required", apperr.ErrInvalidArgument)
	}
	if _, err := c.store.Size(ctx, stream); err != nil {
		return 0, err
	}

	var id int64
	err := c.db.Conn().QueryRowContext(ctx,
		`INSERT INTO media (name, kind, stream_id) VALUES (?, ?, ?) RETURNING id`,
		name, kind, int64(stream)).Scan(&id)
	if database.IsConstraintViolation(err) {
		return 0, fmt.Errorf("%w: %d", streamstore.ErrStreamNotFound, stream)
	}
	if err != nil {
		return 0, fmt.Errorf("register media %q: %w", name, err)
	}

	logging.Debug().
		Int64("media_id", id).
		Str("name", name).
		Str("kind", kind).
		Int64("stream_id", int64(stream)).
		Msg("Media registered")
	return MediaID(id), nil
}

// Lookup returns a single entry.
func (c *Catalog) Lookup(ctx context.Context, id MediaID) (Entry, error) {
	var e Entry
	err := c.db.Conn().QueryRowContext(ctx,
		`SELECT id, name, kind, stream_id, created_at FROM media WHERE id = ?`, int64(id)).
		Scan(&e.ID, &e.Name, &e.Kind, &e.StreamID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %d", ErrMediaNotFound, id)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("lookup media %d: %w", id, err)
	}
	return e, nil
}

// List returns all entries ordered by id.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	return c.Find(ctx, Filter{})
}

// Find returns the entries matching f ordered by id.
func (c *Catalog) Find(ctx context.Context, f Filter) ([]Entry, error) {
	streams := make([]int64, len(f.Streams))
	for i, s := range f.Streams {
		streams[i] = int64(s)
	}
	wb := query.NewWhereBuilder().
		AddKinds(f.Kinds).
		AddStreams(streams).
		AddNamePrefix(f.NamePrefix).
		AddCreatedRange(f.From, f.To)
	whereClause, args := wb.BuildWithPrefix()

	rows, err := c.db.Conn().QueryContext(ctx,
		`SELECT id, name, kind, stream_id, created_at FROM media `+whereClause+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Kind, &e.StreamID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media: %w", err)
	}
	return entries, nil
}

// Delete removes an entry. The referenced stream is left alone.
func (c *Catalog) Delete(ctx context.Context, id MediaID) error {
	res, err := c.db.Conn().ExecContext(ctx, `DELETE FROM media WHERE id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("delete media %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete media %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrMediaNotFound, id)
	}
	return nil
}

// Import copies r into a new complete stream and registers it.
func (c *Catalog) Import(ctx context.Context, name, kind string, r io.Reader) (Entry, error) {
	if name == "" || kind == "" {
		return Entry{}, fmt.Errorf("%w: media name and kind are required", apperr.ErrInvalidArgument)
	}

	stream, err := c.store.CreateStream(ctx)
	if err != nil {
		return Entry{}, err
	}
	w, err := c.store.NewWriter(ctx, stream, c.chunkSize)
	if err != nil {
		return Entry{}, err
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return Entry{}, fmt.Errorf("import %q: %w", name, err)
	}
	if err := w.Finalize(); err != nil {
		return Entry{}, fmt.Errorf("import %q: %w", name, err)
	}

	id, err := c.Register(ctx, name, kind, stream)
	if err != nil {
		return Entry{}, err
	}
	return c.Lookup(ctx, id)
}
