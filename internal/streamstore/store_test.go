// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package streamstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/config"
	"github.com/tomtom215/mixgraph/internal/database"
)

// testDBSemaphore serializes DuckDB use across tests in this package.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{Path: database.MemoryPath, MaxMemory: "512MB", Threads: 2})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return New(db, opts...)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func mustCreate(t *testing.T, s *Store) StreamID {
	t.Helper()
	id, err := s.CreateStream(testContext(t))
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	return id
}

func TestAppendAndRead(t *testing.T) {
	s := setupTestStore(t)
	ctx := testContext(t)
	id := mustCreate(t, s)

	off, err := s.Append(ctx, id, []byte("ABC"))
	if err != nil || off != 0 {
		t.Fatalf("Append ABC = %d, %v", off, err)
	}
	if err := s.AppendAt(ctx, id, 3, []byte("DE")); err != nil {
		t.Fatalf("AppendAt DE: %v", err)
	}

	size, err := s.Size(ctx, id)
	if err != nil || size != 5 {
		t.Fatalf("Size = %d, %v, want 5", size, err)
	}

	tests := []struct {
		name           string
		offset, length int64
		want           string
	}{
		{"whole", 0, 5, "ABCDE"},
		{"spanning chunks", 2, 2, "CD"},
		{"inside second chunk", 4, 1, "E"},
		{"empty at end", 5, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Read(ctx, id, tt.offset, tt.length)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Read(%d, %d) = %q, want %q", tt.offset, tt.length, got, tt.want)
			}
		})
	}

	err = s.AppendAt(ctx, id, 4, []byte("X"))
	if !errors.Is(err, ErrOffsetConflict) {
		t.Errorf("AppendAt(4) err = %v, want ErrOffsetConflict", err)
	}
	if size, _ := s.Size(ctx, id); size != 5 {
		t.Errorf("size after rejected append = %d", size)
	}
}

func TestReadOutOfRange(t *testing.T) {
	s := setupTestStore(t)
	ctx := testContext(t)
	id := mustCreate(t, s)

	if _, err := s.Append(ctx, id, []byte("ABC")); err != nil {
		t.Fatal(err)
	}

	ranges := [][2]int64{
		{0, 4}, {3, 1}, {-1, 1}, {1, -1}, {4, 0},
		{1, math.MaxInt64}, {math.MaxInt64, 1}, {math.MaxInt64, math.MaxInt64},
	}
	for _, r := range ranges {
		_, err := s.Read(ctx, id, r[0], r[1])
		if !errors.Is(err, ErrOutOfRange) || !errors.Is(err, apperr.ErrOutOfRange) {
			t.Errorf("Read(%d, %d) err = %v, want out of range", r[0], r[1], err)
		}
	}
}

func TestUnknownStream(t *testing.T) {
	s := setupTestStore(t)
	ctx := testContext(t)

	if _, err := s.Size(ctx, 9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Size err = %v", err)
	}
	if _, err := s.Append(ctx, 9999, []byte("x")); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Append err = %v", err)
	}
	if _, err := s.Read(ctx, 9999, 0, 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Read err = %v", err)
	}
	if err := s.Complete(ctx, 9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Complete err = %v", err)
	}
	if s.Failed(9999) != nil {
		t.Error("not-found must not mark the stream failed")
	}
}

func TestEmptyAppendIsNoop(t *testing.T) {
	s := setupTestStore(t)
	ctx := testContext(t)
	id := mustCreate(t, s)

	off, err := s.Append(ctx, id, nil)
	if err != nil || off != 0 {
		t.Fatalf("Append(nil) = %d, %v", off, err)
	}
	chunks, err := s.Chunks(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("chunks = %v, want none", chunks)
	}
}

func TestConcurrentAppendsStayContiguous(t *testing.T) {
	s := setupTestStore(t, WithWriterWait(10*time.Second))
	ctx := testContext(t)
	id := mustCreate(t, s)

	const writers, perWriter = 4, 10
	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := s.Append(ctx, id, []byte(fmt.Sprintf("w%d-%02d|", w, i))); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("append: %v", err)
	}

	chunks, err := s.Chunks(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != writers*perWriter {
		t.Fatalf("chunks = %d, want %d", len(chunks), writers*perWriter)
	}
	var next int64
	for _, c := range chunks {
		if c.Offset != next {
			t.Fatalf("chunk at %d, want %d", c.Offset, next)
		}
		next += c.Length
	}
	size, _ := s.Size(ctx, id)
	if size != next {
		t.Errorf("size %d != covered %d", size, next)
	}
}

func TestWriterSlotBusy(t *testing.T) {
	s := setupTestStore(t, WithWriterWait(0))
	ctx := testContext(t)
	id := mustCreate(t, s)

	release, err := s.acquire(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Append(ctx, id, []byte("x"))
	if !errors.Is(err, ErrStreamBusy) || !errors.Is(err, apperr.ErrBusy) {
		t.Errorf("Append err = %v, want busy", err)
	}

	// Other streams are unaffected.
	other := mustCreate(t, s)
	if _, err := s.Append(ctx, other, []byte("y")); err != nil {
		t.Errorf("append to other stream: %v", err)
	}

	release()
	if _, err := s.Append(ctx, id, []byte("x")); err != nil {
		t.Errorf("append after release: %v", err)
	}
}

func TestWriterSlotWaitsThenSucceeds(t *testing.T) {
	s := setupTestStore(t, WithWriterWait(5*time.Second))
	ctx := testContext(t)
	id := mustCreate(t, s)

	release, err := s.acquire(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	time.AfterFunc(50*time.Millisecond, release)

	if _, err := s.Append(ctx, id, []byte("queued")); err != nil {
		t.Errorf("queued append: %v", err)
	}
}

func TestCompleteRejectsAppends(t *testing.T) {
	s := setupTestStore(t)
	ctx := testContext(t)
	id := mustCreate(t, s)

	if _, err := s.Append(ctx, id, []byte("data")); err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, id); err != nil {
		t.Errorf("second Complete: %v", err)
	}
	if _, err := s.Append(ctx, id, []byte("more")); !errors.Is(err, ErrStreamComplete) {
		t.Errorf("Append err = %v, want ErrStreamComplete", err)
	}

	info, err := s.Info(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Complete || info.Size != 4 || info.Chunks != 1 {
		t.Errorf("info = %+v", info)
	}
}

func TestFailedStreamIsIsolated(t *testing.T) {
	s := setupTestStore(t)
	ctx := testContext(t)
	bad := mustCreate(t, s)
	good := mustCreate(t, s)

	s.failed.Store(bad, errors.New("disk on fire"))

	if _, err := s.Append(ctx, bad, []byte("x")); !errors.Is(err, ErrStreamFailed) {
		t.Errorf("Append to failed stream err = %v", err)
	}
	if _, err := s.Append(ctx, good, []byte("x")); err != nil {
		t.Errorf("Append to healthy stream: %v", err)
	}

	s.ClearFailure(bad)
	if _, err := s.Append(ctx, bad, []byte("x")); err != nil {
		t.Errorf("Append after ClearFailure: %v", err)
	}
}

func TestReadServedFromCache(t *testing.T) {
	s := setupTestStore(t, WithCache(8, 1<<20))
	ctx := testContext(t)
	id := mustCreate(t, s)

	payload := bytes.Repeat([]byte{0xAB}, 1024)
	if _, err := s.Append(ctx, id, payload); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		got, err := s.Read(ctx, id, 0, int64(len(payload)))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatal("payload mismatch")
		}
	}
	hits, misses, _ := s.chunks.Stats()
	if misses != 1 || hits != 2 {
		t.Errorf("cache hits=%d misses=%d, want 2/1", hits, misses)
	}
}

func TestReadSnapshotDuringAppends(t *testing.T) {
	s := setupTestStore(t, WithWriterWait(10*time.Second))
	ctx := testContext(t)
	id := mustCreate(t, s)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if _, err := s.Append(ctx, id, []byte("0123456789")); err != nil {
				t.Errorf("append: %v", err)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		size, err := s.Size(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		got, err := s.Read(ctx, id, 0, size)
		if err != nil {
			t.Fatalf("Read(0, %d): %v", size, err)
		}
		if size%10 != 0 || int64(len(got)) != size {
			t.Fatalf("torn read: size %d, got %d bytes", size, len(got))
		}
	}
}
