// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Package database owns the DuckDB connection that backs the stream store and
the media catalog.

# Schema

	streams(id, size, complete, created_at)
	blobs(stream_id, "offset", data)       -- PRIMARY KEY (stream_id, "offset")
	media(id, name, kind, stream_id, created_at)  -- stream_id REFERENCES streams(id)
	workspaces(name, data, saved_at)

streams.size is mutated only by the stream store append transaction. The
blobs primary key is what prevents a retried write from committing the same
range twice. Identifiers come from the streams_id_seq and media_id_seq
sequences.

media.stream_id is a foreign key, so a catalog entry can never name a stream
that does not exist. Streams are never deleted, and the store only updates
size and complete, which are not indexed and so are updated in place. blobs
carries no foreign key; its rows are written in the same transaction as the
size update that accounts for them.

workspaces holds saved graph layouts as JSON documents keyed by name.

# Transactions

WithTx runs a function inside a transaction and commits only if it returns
nil. DuckDB uses optimistic concurrency; IsTransactionConflict recognises the
resulting errors so callers can map them to a Busy condition.

# Migrations

The initial schema is created with CREATE ... IF NOT EXISTS. Later changes are
appended to the migrations list; each runs in its own transaction together
with its schema_migrations row, so a failed step is retried on next start.
*/
package database
