// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package wal

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/config"
)

func openTestJournal(t *testing.T, path string) *BadgerJournal {
	t.Helper()
	j, err := Open(&config.WALConfig{
		Enabled:          true,
		Path:             path,
		MemTableSize:     16 << 20, // BadgerDB minimum for tests
		ValueLogFileSize: 16 << 20,
		NumCompactors:    2,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return j
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPendingIsOrderedByStreamAndOffset(t *testing.T) {
	ctx := testContext(t)
	j := openTestJournal(t, MemoryPath)
	defer j.Close()

	writes := []Record{
		{StreamID: 2, Offset: 0, Data: []byte("x")},
		{StreamID: 1, Offset: 4096, Data: []byte("c")},
		{StreamID: 1, Offset: 0, Data: []byte("a")},
		{StreamID: 1, Offset: 16, Data: []byte("b"), Final: true},
	}
	for i := range writes {
		if err := j.Write(ctx, &writes[i]); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	got, err := j.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		stream, offset int64
		data           string
	}{{1, 0, "a"}, {1, 16, "b"}, {1, 4096, "c"}, {2, 0, "x"}}
	if len(got) != len(want) {
		t.Fatalf("pending = %d records, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].StreamID != w.stream || got[i].Offset != w.offset || string(got[i].Data) != w.data {
			t.Errorf("record %d = %d@%d %q", i, got[i].StreamID, got[i].Offset, got[i].Data)
		}
	}
	if !got[1].Final {
		t.Error("Final flag lost")
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}

func TestConfirmRemovesRecord(t *testing.T) {
	ctx := testContext(t)
	j := openTestJournal(t, MemoryPath)
	defer j.Close()

	r := &Record{StreamID: 7, Offset: 0, Data: []byte("abc")}
	if err := j.Write(ctx, r); err != nil {
		t.Fatal(err)
	}
	// rewriting the same chunk replaces it
	if err := j.Write(ctx, r); err != nil {
		t.Fatal(err)
	}
	if s := j.Stats(); s.Pending != 1 || s.Writes != 2 {
		t.Errorf("stats = %+v", s)
	}

	if err := j.Confirm(ctx, 7, 0); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := j.Confirm(ctx, 7, 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Confirm err = %v, want not found", err)
	}

	got, err := j.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("pending after confirm = %d", len(got))
	}
	if s := j.Stats(); s.Pending != 0 || s.Confirms != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestWriteRejectsNegativeKeys(t *testing.T) {
	j := openTestJournal(t, MemoryPath)
	defer j.Close()

	err := j.Write(testContext(t), &Record{StreamID: 1, Offset: -1})
	if !errors.Is(err, ErrNegativeOffset) {
		t.Errorf("err = %v", err)
	}
}

func TestClosedJournal(t *testing.T) {
	ctx := testContext(t)
	j := openTestJournal(t, MemoryPath)
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if err := j.Write(ctx, &Record{StreamID: 1}); !errors.Is(err, apperr.ErrClosed) {
		t.Errorf("Write err = %v", err)
	}
	if _, err := j.Pending(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Pending err = %v", err)
	}
	if err := j.Confirm(ctx, 1, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Confirm err = %v", err)
	}
}

func TestPendingSurvivesReopen(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "wal")

	j := openTestJournal(t, path)
	payload := bytes.Repeat([]byte{0xAB}, 8192)
	for i, off := range []int64{0, 8192} {
		if err := j.Write(ctx, &Record{StreamID: 3, Offset: off, Data: payload, Final: i == 1}); err != nil {
			t.Fatal(err)
		}
	}
	if err := j.Confirm(ctx, 3, 0); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	j = openTestJournal(t, path)
	defer j.Close()
	if s := j.Stats(); s.Pending != 1 {
		t.Errorf("pending after reopen = %d, want 1", s.Pending)
	}
	got, err := j.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Offset != 8192 || !got[0].Final || !bytes.Equal(got[0].Data, payload) {
		t.Fatalf("recovered %+v", got)
	}
}

func TestCollectOnDisk(t *testing.T) {
	j := openTestJournal(t, filepath.Join(t.TempDir(), "wal"))
	defer j.Close()

	if err := j.collect(); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if j.Stats().GCRuns != 1 {
		t.Errorf("gc runs = %d", j.Stats().GCRuns)
	}
}

func TestRunGCStopsWithContext(t *testing.T) {
	j := openTestJournal(t, MemoryPath)
	defer j.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.RunGC(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RunGC err = %v", err)
	}
}

func TestNop(t *testing.T) {
	var j Journal = Nop{}
	ctx := testContext(t)
	if err := j.Write(ctx, &Record{}); err != nil {
		t.Fatal(err)
	}
	got, err := j.Pending(ctx)
	if err != nil || len(got) != 0 {
		t.Errorf("Pending = %v, %v", got, err)
	}
}
