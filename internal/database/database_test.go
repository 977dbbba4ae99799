// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/mixgraph/internal/config"
)

// testDBSemaphore serializes DuckDB use across tests in this package.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := New(&config.DatabaseConfig{Path: MemoryPath, MaxMemory: "512MB", Threads: 2})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return db
}

func mustNil(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewCreatesSchema(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	for _, table := range []string{"streams", "blobs", "media", "workspaces", "schema_migrations"} {
		var n int
		err := db.Conn().QueryRowContext(ctx,
			`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`, table).Scan(&n)
		mustNil(t, err)
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}

	version, err := db.SchemaVersion(ctx)
	mustNil(t, err)
	if want := LatestSchemaVersion(); version != want {
		t.Errorf("SchemaVersion = %d, want %d", version, want)
	}
}

func TestStreamIDsFromSequence(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	var first, second int64
	mustNil(t, db.Conn().QueryRowContext(ctx, `INSERT INTO streams DEFAULT VALUES RETURNING id`).Scan(&first))
	mustNil(t, db.Conn().QueryRowContext(ctx, `INSERT INTO streams DEFAULT VALUES RETURNING id`).Scan(&second))

	if second != first+1 {
		t.Errorf("ids %d, %d are not sequential", first, second)
	}
}

func TestBlobPrimaryKeyRejectsDuplicateOffset(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	var id int64
	mustNil(t, db.Conn().QueryRowContext(ctx, `INSERT INTO streams DEFAULT VALUES RETURNING id`).Scan(&id))

	_, err := db.Conn().ExecContext(ctx, `INSERT INTO blobs (stream_id, "offset", data) VALUES (?, 0, ?)`, id, []byte("abc"))
	mustNil(t, err)

	_, err = db.Conn().ExecContext(ctx, `INSERT INTO blobs (stream_id, "offset", data) VALUES (?, 0, ?)`, id, []byte("xyz"))
	if err == nil {
		t.Fatal("duplicate (stream_id, offset) was accepted")
	}
	if !IsConstraintViolation(err) {
		t.Errorf("IsConstraintViolation(%v) = false", err)
	}
}

func TestSizeCheckConstraint(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	_, err := db.Conn().ExecContext(ctx, `INSERT INTO streams (size) VALUES (-1)`)
	if err == nil {
		t.Fatal("negative size accepted")
	}
}

func TestMediaRequiresStream(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	_, err := db.Conn().ExecContext(ctx, `INSERT INTO media (name, kind, stream_id) VALUES ('take', 'recording', 99)`)
	if err == nil {
		t.Fatal("media entry for a missing stream was accepted")
	}
	if !IsConstraintViolation(err) {
		t.Errorf("IsConstraintViolation(%v) = false", err)
	}

	var id int64
	mustNil(t, db.Conn().QueryRowContext(ctx, `INSERT INTO streams DEFAULT VALUES RETURNING id`).Scan(&id))
	_, err = db.Conn().ExecContext(ctx, `INSERT INTO media (name, kind, stream_id) VALUES ('take', 'recording', ?)`, id)
	mustNil(t, err)

	// the referenced stream keeps growing and completing
	_, err = db.Conn().ExecContext(ctx, `UPDATE streams SET size = size + 4 WHERE id = ?`, id)
	mustNil(t, err)
	_, err = db.Conn().ExecContext(ctx, `UPDATE streams SET complete = true WHERE id = ?`, id)
	mustNil(t, err)
}

func TestMigrationAddsMediaForeignKey(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	cfg := &config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "v1.duckdb"), MaxMemory: "256MB", Threads: 1}
	ctx := testContext(t)

	// rewind to a version 1 layout: media without the constraint, one
	// valid entry and one pointing at a stream that never existed
	db, err := New(cfg)
	mustNil(t, err)
	var stream int64
	mustNil(t, db.Conn().QueryRowContext(ctx, `INSERT INTO streams DEFAULT VALUES RETURNING id`).Scan(&stream))
	for _, stmt := range []string{
		`DROP TABLE media`,
		`CREATE TABLE media (
			id BIGINT PRIMARY KEY DEFAULT nextval('media_id_seq'),
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			stream_id BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
		`DELETE FROM schema_migrations WHERE version > 1`,
	} {
		_, err := db.Conn().ExecContext(ctx, stmt)
		mustNil(t, err)
	}
	_, err = db.Conn().ExecContext(ctx, `INSERT INTO media (name, kind, stream_id) VALUES ('kept', 'clip', ?), ('orphan', 'clip', 777)`, stream)
	mustNil(t, err)
	mustNil(t, db.Close())

	db, err = New(cfg)
	mustNil(t, err)
	defer db.Close()

	version, err := db.SchemaVersion(ctx)
	mustNil(t, err)
	if version != LatestSchemaVersion() {
		t.Errorf("version = %d", version)
	}
	var names []string
	rows, err := db.Conn().QueryContext(ctx, `SELECT name FROM media ORDER BY id`)
	mustNil(t, err)
	for rows.Next() {
		var n string
		mustNil(t, rows.Scan(&n))
		names = append(names, n)
	}
	mustNil(t, rows.Err())
	_ = rows.Close()
	if len(names) != 1 || names[0] != "kept" {
		t.Errorf("media after migration = %v", names)
	}
	if _, err := db.Conn().ExecContext(ctx, `INSERT INTO media (name, kind, stream_id) VALUES ('x', 'clip', 778)`); !IsConstraintViolation(err) {
		t.Errorf("migrated media accepted a missing stream: %v", err)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)
	errAbort := errors.New("abort")

	err := db.WithTx(ctx, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO streams DEFAULT VALUES`); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("WithTx error = %v, want errAbort", err)
	}

	var n int
	mustNil(t, db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM streams`).Scan(&n))
	if n != 0 {
		t.Errorf("rolled back insert is visible: %d rows", n)
	}

	mustNil(t, db.WithTx(ctx, nil, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO streams DEFAULT VALUES`)
		return err
	}))
	mustNil(t, db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM streams`).Scan(&n))
	if n != 1 {
		t.Errorf("committed insert missing: %d rows", n)
	}
}

func TestFileDatabaseReopen(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	path := filepath.Join(t.TempDir(), "nested", "mixgraph.duckdb")
	cfg := &config.DatabaseConfig{Path: path, MaxMemory: "256MB", Threads: 1}

	db, err := New(cfg)
	mustNil(t, err)
	ctx := testContext(t)
	_, err = db.Conn().ExecContext(ctx, `INSERT INTO streams (size) VALUES (42)`)
	mustNil(t, err)
	mustNil(t, db.Close())

	db, err = New(cfg)
	mustNil(t, err)
	defer db.Close()

	var size int64
	mustNil(t, db.Conn().QueryRowContext(ctx, `SELECT size FROM streams`).Scan(&size))
	if size != 42 {
		t.Errorf("size after reopen = %d, want 42", size)
	}
	version, err := db.SchemaVersion(ctx)
	mustNil(t, err)
	if version != LatestSchemaVersion() {
		t.Errorf("migration re-applied or lost: version %d", version)
	}
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		msg        string
		conflict   bool
		constraint bool
	}{
		{"TransactionContext Error: Transaction conflict: cannot update", true, false},
		{"Constraint Error: Duplicate key \"stream_id: 1, offset: 0\"", false, true},
		{"IO Error: disk full", false, false},
	}
	for _, tt := range tests {
		err := errors.New(tt.msg)
		if got := IsTransactionConflict(err); got != tt.conflict {
			t.Errorf("IsTransactionConflict(%q) = %v", tt.msg, got)
		}
		if got := IsConstraintViolation(err); got != tt.constraint {
			t.Errorf("IsConstraintViolation(%q) = %v", tt.msg, got)
		}
	}
	if IsTransactionConflict(nil) || IsConstraintViolation(nil) {
		t.Error("nil error classified")
	}
}
