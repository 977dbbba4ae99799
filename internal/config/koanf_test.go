// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolateConfig points CONFIG_PATH at a non-existent file and moves the
// working directory to an empty temp dir so stray config files are ignored.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolateConfig(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Store.ChunkSize != DefaultChunkSize {
		t.Errorf("ChunkSize = %d, want %d", cfg.Store.ChunkSize, DefaultChunkSize)
	}
	if got := cfg.Audio.FramesPerTick(); got != 441 {
		t.Errorf("FramesPerTick() = %d, want 441", got)
	}
	if got := cfg.Audio.TickInterval(); got != 10*time.Millisecond {
		t.Errorf("TickInterval() = %s, want 10ms", got)
	}
	if cfg.Engine.CommandQueueSize != 8 {
		t.Errorf("CommandQueueSize = %d, want 8", cfg.Engine.CommandQueueSize)
	}
	if cfg.Events.NATSURL != "" {
		t.Errorf("NATSURL = %q, want empty", cfg.Events.NATSURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolateConfig(t)
	t.Setenv("DUCKDB_PATH", ":memory:")
	t.Setenv("AUDIO_SAMPLE_RATE", "48000")
	t.Setenv("AUDIO_TOLERANCE", "3ms")
	t.Setenv("VIDEO_ENABLED", "false")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("UNRELATED_SETTING", "ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Database.Path != ":memory:" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.FramesPerTick() != 480 {
		t.Errorf("SampleRate = %d, FramesPerTick = %d", cfg.Audio.SampleRate, cfg.Audio.FramesPerTick())
	}
	if cfg.Audio.Tolerance != 3*time.Millisecond {
		t.Errorf("Tolerance = %s", cfg.Audio.Tolerance)
	}
	if cfg.Video.Enabled {
		t.Error("Video.Enabled should be false")
	}
	if cfg.Events.NATSURL != "nats://localhost:4222" {
		t.Errorf("NATSURL = %q", cfg.Events.NATSURL)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := isolateConfig(t)
	path := filepath.Join(dir, "mixgraph.yaml")
	yaml := `
store:
  chunk_size: 65536
video:
  frame_rate: 25
  width: 640
  height: 360
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.ChunkSize != 65536 {
		t.Errorf("ChunkSize = %d, want 65536", cfg.Store.ChunkSize)
	}
	if cfg.Video.FrameInterval() != 40*time.Millisecond {
		t.Errorf("FrameInterval() = %s, want 40ms", cfg.Video.FrameInterval())
	}
	// env beats file
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no domains", func(c *Config) { c.Audio.Enabled = false; c.Video.Enabled = false }, "at least one"},
		{"uneven tick", func(c *Config) { c.Audio.TicksPerSecond = 7 }, "divisible"},
		{"tolerance too long", func(c *Config) { c.Audio.Tolerance = 20 * time.Millisecond }, "AUDIO_TOLERANCE"},
		{"wal without path", func(c *Config) { c.WAL.Path = "" }, "WAL_PATH"},
		{"tiny chunk", func(c *Config) { c.Store.ChunkSize = 2048 }, "STORE_CHUNK_SIZE"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"bad memory", func(c *Config) { c.Database.MaxMemory = "plenty" }, "max_memory"},
		{"zero queue", func(c *Config) { c.Persist.QueueSize = 0 }, "queue_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"DUCKDB_PATH", "database.path"},
		{"HTTP_PORT", "server.port"},
		{"NATS_URL", "events.nats_url"},
		{"persist_queue_size", "persist.queue_size"},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
