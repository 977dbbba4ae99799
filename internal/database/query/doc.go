// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

// Package query builds parameterized SQL WHERE clauses for catalog listing.
//
// WhereBuilder is a fluent accumulator of conditions and bind arguments:
//
//	wb := query.NewWhereBuilder()
//	wb.AddKinds(filter.Kinds)
//	wb.AddStreams(filter.Streams)
//	wb.AddNamePrefix(filter.NamePrefix)
//	wb.AddCreatedRange(filter.From, filter.To)
//	whereClause, args := wb.BuildWithPrefix()
//
//	rows, err := db.QueryContext(ctx,
//	    "SELECT id, name, kind, stream_id, created_at FROM media "+whereClause+" ORDER BY id",
//	    args...)
//
// Values always travel as bind arguments; only column names and operators
// are formatted into the clause text.
package query
