// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/mixgraph/internal/logging"
)

// schemaContext bounds DDL execution.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

const mediaTable = `CREATE TABLE IF NOT EXISTS media (
	id BIGINT PRIMARY KEY DEFAULT nextval('media_id_seq'),
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	stream_id BIGINT NOT NULL REFERENCES streams(id),
	created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
)`

func tableCreationQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS streams_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS streams (
			id BIGINT PRIMARY KEY DEFAULT nextval('streams_id_seq'),
			size BIGINT NOT NULL DEFAULT 0 CHECK (size >= 0),
			complete BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS blobs (
			stream_id BIGINT NOT NULL,
			"offset" BIGINT NOT NULL CHECK ("offset" >= 0),
			data BLOB NOT NULL,
			PRIMARY KEY (stream_id, "offset")
		)`,
		`CREATE SEQUENCE IF NOT EXISTS media_id_seq START 1`,
		mediaTable,
	}
}

// createTables creates the streams, blobs and media tables.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// migration is an append-only schema change recorded in schema_migrations.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{1, "media_stream_index", []string{
		`CREATE INDEX IF NOT EXISTS idx_media_stream_id ON media(stream_id)`,
	}},
	// DuckDB cannot add a constraint to an existing table, so media is
	// rebuilt. Entries pointing at missing streams are dropped.
	{2, "media_stream_fk", []string{
		`CREATE TEMP TABLE media_backup AS SELECT * FROM media`,
		`DROP TABLE media`,
		mediaTable,
		`INSERT INTO media (id, name, kind, stream_id, created_at)
			SELECT id, name, kind, stream_id, created_at FROM media_backup
			WHERE stream_id IN (SELECT id FROM streams)`,
		`DROP TABLE media_backup`,
		`CREATE INDEX IF NOT EXISTS idx_media_stream_id ON media(stream_id)`,
	}},
	{3, "workspaces", []string{
		`CREATE TABLE IF NOT EXISTS workspaces (
			name TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			saved_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
	}},
}

// LatestSchemaVersion is the version a fully migrated database reports.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// migrate applies every migration newer than the recorded schema version.
func (db *DB) migrate() error {
	ctx, cancel := schemaContext()
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT current_timestamp
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := db.WithTx(ctx, nil, func(tx *sql.Tx) error {
			for _, stmt := range m.stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		logging.Info().Int("version", m.version).Str("name", m.name).Msg("Applied schema migration")
	}
	return nil
}

// SchemaVersion returns the highest applied migration, or 0.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}
