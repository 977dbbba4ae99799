// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Package streamstore implements append-only, chunked persistence of raw byte
streams on top of DuckDB.

# Model

A stream is an identified byte sequence whose size only grows. Bytes are
committed as immutable chunks, one row per chunk in the blobs table, keyed
by (stream_id, offset). Chunk offsets of a stream form a gap-free,
non-overlapping covering of [0, size).

# Appending

Append commits a chunk at the current size inside one transaction that
inserts the blob row and advances streams.size, so a crash loses at most the
chunk being written. AppendAt is the conditional form used for idempotent
replay: it fails with ErrOffsetConflict unless the offset equals the current
size, and the (stream_id, offset) primary key rejects a second commit of the
same range even across processes.

Each stream has a single writer slot. A second appender waits up to the
configured writer wait (or its context deadline) and then fails with
ErrStreamBusy. Appends to different streams proceed in parallel.

A storage failure while appending marks that stream failed; later appends to
it return ErrStreamFailed until ClearFailure is called. Other streams are
unaffected.

# Reading

Read returns bytes from a single transaction snapshot, so a concurrent append
is either fully visible or not at all. Reads past the committed size fail
with ErrOutOfRange instead of blocking. Committed chunks are cached in an LRU
because they never change.

Writer buffers arbitrary writes into fixed-size chunks. Reader exposes a
stream as io.Reader, io.ReaderAt and io.Seeker for playback and seeking while
the stream is still being written.
*/
package streamstore
