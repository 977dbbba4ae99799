// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// captureLogs points the global logger at a buffer for the duration of a test.
func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(Config{Level: level, Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })
	return &buf
}

func decodeLine(t *testing.T, line string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", line, err)
	}
	return m
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitJSONOutput(t *testing.T) {
	buf := captureLogs(t, "info")

	Info().Str("domain", "audio").Msg("running")
	Debug().Msg("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	m := decodeLine(t, lines[0])
	if m["message"] != "running" || m["domain"] != "audio" || m["level"] != "info" {
		t.Errorf("unexpected log line: %v", m)
	}
}

func TestDomainHelpers(t *testing.T) {
	buf := captureLogs(t, "debug")

	l := ForNode("video", 42)
	l.Warn().Msg("faulted")
	s := ForStream(7)
	s.Info().Msg("committed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	node := decodeLine(t, lines[0])
	if node["domain"] != "video" || node["node_id"] != float64(42) {
		t.Errorf("node fields missing: %v", node)
	}
	stream := decodeLine(t, lines[1])
	if stream["stream_id"] != float64(7) || stream["component"] != "streamstore" {
		t.Errorf("stream fields missing: %v", stream)
	}
}

func TestCtxAddsCorrelationID(t *testing.T) {
	buf := captureLogs(t, "info")

	ctx := ContextWithCorrelationID(context.Background(), "abc12345")
	ctx = ContextWithRequestID(ctx, "req-1")
	Ctx(ctx).Info().Msg("queued")

	m := decodeLine(t, strings.TrimSpace(buf.String()))
	if m["correlation_id"] != "abc12345" {
		t.Errorf("correlation_id = %v", m["correlation_id"])
	}
	if m["request_id"] != "req-1" {
		t.Errorf("request_id = %v", m["request_id"])
	}
}

func TestContextWithNewCorrelationIDKeepsExisting(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "keepme")
	if got := CorrelationIDFromContext(ContextWithNewCorrelationID(ctx)); got != "keepme" {
		t.Errorf("correlation id replaced: %q", got)
	}
	fresh := CorrelationIDFromContext(ContextWithNewCorrelationID(context.Background()))
	if len(fresh) != 8 {
		t.Errorf("generated correlation id %q, want 8 chars", fresh)
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))

	Ctx(ctx).Info().Msg("scoped")

	if !strings.Contains(buf.String(), "scoped") {
		t.Errorf("context logger not used: %q", buf.String())
	}
}
