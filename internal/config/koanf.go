// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mixgraph/config.yaml",
	"/etc/mixgraph/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultChunkSize is the size of a committed stream chunk.
const DefaultChunkSize = 1 << 20

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:                   "/data/mixgraph.duckdb",
			MaxMemory:              "1GB",
			Threads:                0, // 0 = runtime.NumCPU()
			PreserveInsertionOrder: true,
		},
		Store: StoreConfig{
			ChunkSize:    DefaultChunkSize,
			CacheEntries: 256,
			WriterWait:   2 * time.Second,
		},
		Audio: AudioConfig{
			Enabled:        true,
			SampleRate:     44100,
			Channels:       2,
			TicksPerSecond: 100,
			Tolerance:      2 * time.Millisecond,
			SinkQueueSize:  64,
			MaxSlowdown:    8,
		},
		Video: VideoConfig{
			Enabled:       true,
			FrameRate:     30,
			Width:         1280,
			Height:        720,
			Tolerance:     10 * time.Millisecond,
			SinkQueueSize: 16,
			MaxSlowdown:   4,
		},
		Engine: EngineConfig{
			CommandQueueSize: 8,
			CommandTimeout:   time.Second,
			BridgeCapacity:   8,
			DrainTimeout:     5 * time.Second,
			LagWarning:       2,
		},
		Persist: PersistConfig{
			QueueSize:       32,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		WAL: WALConfig{
			Enabled:          true,
			Path:             "/data/wal",
			SyncWrites:       true,
			MemTableSize:     16 << 20,
			ValueLogFileSize: 64 << 20,
			NumCompactors:    2,
			Compression:      false, // raw PCM/RGBA
			GCInterval:       5 * time.Minute,
			GCRatio:          0.5,
		},
		Events: EventsConfig{
			Enabled:     true,
			NATSURL:     "",
			TopicPrefix: "mixgraph",
			BufferSize:  256,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            9464,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,

			RateLimitRequests: 600,
			RateLimitWindow:   time.Minute,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence, and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// AUDIO_SAMPLE_RATE -> audio.sample_rate, see envTransformFunc
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in defaults without consulting files or the environment.
func Default() *Config {
	return defaultConfig()
}

// findConfigFile returns the first existing config file, or "" if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	// Database
	"duckdb_path":                     "database.path",
	"duckdb_max_memory":               "database.max_memory",
	"duckdb_threads":                  "database.threads",
	"duckdb_preserve_insertion_order": "database.preserve_insertion_order",

	// Stream store
	"store_chunk_size":    "store.chunk_size",
	"store_cache_entries": "store.cache_entries",
	"store_writer_wait":   "store.writer_wait",

	// Audio domain
	"audio_enabled":          "audio.enabled",
	"audio_sample_rate":      "audio.sample_rate",
	"audio_channels":         "audio.channels",
	"audio_ticks_per_second": "audio.ticks_per_second",
	"audio_tolerance":        "audio.tolerance",
	"audio_sink_queue_size":  "audio.sink_queue_size",
	"audio_max_slowdown":     "audio.max_slowdown",

	// Video domain
	"video_enabled":         "video.enabled",
	"video_frame_rate":      "video.frame_rate",
	"video_width":           "video.width",
	"video_height":          "video.height",
	"video_tolerance":       "video.tolerance",
	"video_sink_queue_size": "video.sink_queue_size",
	"video_max_slowdown":    "video.max_slowdown",

	// Engine
	"engine_command_queue_size": "engine.command_queue_size",
	"engine_command_timeout":    "engine.command_timeout",
	"engine_bridge_capacity":    "engine.bridge_capacity",
	"engine_drain_timeout":      "engine.drain_timeout",
	"engine_lag_warning":        "engine.lag_warning",
	"engine_workspace":          "engine.workspace",
	"mixgraph_demo":             "engine.demo",

	// Persistence
	"persist_queue_size":       "persist.queue_size",
	"persist_breaker_failures": "persist.breaker_failures",
	"persist_breaker_timeout":  "persist.breaker_timeout",

	// Chunk journal
	"wal_enabled":             "wal.enabled",
	"wal_path":                "wal.path",
	"wal_sync_writes":         "wal.sync_writes",
	"wal_mem_table_size":      "wal.mem_table_size",
	"wal_value_log_file_size": "wal.value_log_file_size",
	"wal_num_compactors":      "wal.num_compactors",
	"wal_compression":         "wal.compression",
	"wal_gc_interval":         "wal.gc_interval",
	"wal_gc_ratio":            "wal.gc_ratio",

	// Events
	"events_enabled":      "events.enabled",
	"nats_url":            "events.nats_url",
	"events_topic_prefix": "events.topic_prefix",
	"events_buffer_size":  "events.buffer_size",

	// Ops server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_rate_limit":       "server.rate_limit_requests",
	"http_rate_window":      "server.rate_limit_window",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped keys return "" so koanf skips them.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
