// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package streamstore

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestWriterChunksAndFinalizes(t *testing.T) {
	s := setupTestStore(t)
	ctx := testContext(t)
	id := mustCreate(t, s)

	w, err := s.NewWriter(ctx, id, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("abcdefghij")); err != nil {
		t.Fatal(err)
	}

	chunks, err := s.Chunks(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunks before flush = %v, want 2 full chunks", chunks)
	}

	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	chunks, _ = s.Chunks(ctx, id)
	want := []ChunkInfo{{0, 4}, {4, 4}, {8, 2}}
	if len(chunks) != len(want) {
		t.Fatalf("chunks = %v, want %v", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %v, want %v", i, chunks[i], want[i])
		}
	}

	info, _ := s.Info(ctx, id)
	if !info.Complete {
		t.Error("stream not complete after Finalize")
	}
	if _, err := w.Write([]byte("x")); !errors.Is(err, ErrStreamComplete) {
		t.Errorf("Write after Finalize err = %v", err)
	}
}

func TestReaderLiveAndComplete(t *testing.T) {
	s := setupTestStore(t)
	ctx := testContext(t)
	id := mustCreate(t, s)

	if _, err := s.Append(ctx, id, []byte("hello ")); err != nil {
		t.Fatal(err)
	}
	r, err := s.Open(ctx, id)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 16)
	n, err := r.Read(buf)
	if err != nil || string(buf[:n]) != "hello " {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}
	// Live stream, nothing more yet.
	if _, err := r.Read(buf); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Read at live end err = %v", err)
	}

	if _, err := s.Append(ctx, id, []byte("world")); err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, id); err != nil {
		t.Fatal(err)
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(rest) != "world" {
		t.Errorf("rest = %q", rest)
	}

	if _, err := r.Seek(-5, io.SeekEnd); err != nil {
		t.Fatal(err)
	}
	tail := make([]byte, 5)
	if _, err := io.ReadFull(r, tail); err != nil || !bytes.Equal(tail, []byte("world")) {
		t.Errorf("tail = %q, %v", tail, err)
	}

	n, err = r.ReadAt(buf, 8)
	if n != 3 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadAt short = %d, %v", n, err)
	}
}
