// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package query

import (
	"fmt"
	"strings"
	"time"
)

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
//
//	wb := query.NewWhereBuilder()
//	wb.AddKinds([]string{"recording", "clip"})
//	wb.AddNamePrefix("intro")
//	whereClause, args := wb.Build()
//	// kind IN (?, ?) AND starts_with(name, ?)
type WhereBuilder struct {
	clauses []string
	args    []any
}

// NewWhereBuilder creates an empty WhereBuilder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{}
}

// AddClause adds a raw condition with its arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...any) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddCreatedRange filters on created_at. Nil bounds are skipped.
func (wb *WhereBuilder) AddCreatedRange(from, to *time.Time) *WhereBuilder {
	if from != nil {
		wb.AddClause("created_at >= ?", *from)
	}
	if to != nil {
		wb.AddClause("created_at <= ?", *to)
	}
	return wb
}

// AddKinds adds "kind IN (...)". An empty slice is skipped.
func (wb *WhereBuilder) AddKinds(kinds []string) *WhereBuilder {
	return addIn(wb, "kind", kinds)
}

// AddStreams adds "stream_id IN (...)". An empty slice is skipped.
func (wb *WhereBuilder) AddStreams(streams []int64) *WhereBuilder {
	return addIn(wb, "stream_id", streams)
}

// AddNamePrefix matches names starting with prefix. Empty is skipped.
func (wb *WhereBuilder) AddNamePrefix(prefix string) *WhereBuilder {
	if prefix != "" {
		wb.AddClause("starts_with(name, ?)", prefix)
	}
	return wb
}

func addIn[T any](wb *WhereBuilder, column string, values []T) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return wb
}

// Build joins the clauses with AND. It returns ("1=1", nil args) when empty.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.clauses) == 0 {
		return "1=1", []any{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix is Build with a leading "WHERE ".
func (wb *WhereBuilder) BuildWithPrefix() (string, []any) {
	whereClause, args := wb.Build()
	return "WHERE " + whereClause, args
}

// Count returns the number of clauses.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty reports whether no clauses were added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
