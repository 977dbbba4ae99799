// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

/*
Package config loads and validates mixgraph configuration.

# Configuration Sources

Configuration is layered with koanf, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file: CONFIG_PATH, then config.yaml, config.yml,
    /etc/mixgraph/config.yaml
 3. Environment variables, mapped explicitly by envTransformFunc

Unmapped environment variables are ignored, so unrelated process environment
never leaks into the configuration tree.

# Configuration Structure

  - DatabaseConfig: DuckDB file backing the streams, blobs and media tables
  - StoreConfig: chunk size, read cache size, writer slot wait
  - AudioConfig / VideoConfig: clock domain cadence, tolerance and backpressure
  - EngineConfig: command queue, cross-domain bridges, drain timeout
  - PersistConfig: persistence queue depth and circuit breaker
  - WALConfig: BadgerDB chunk journal
  - EventsConfig: status bus backend (in-process or NATS)
  - ServerConfig: ops HTTP endpoint (/metrics, /healthz, /status)
  - SupervisorConfig: suture restart policy
  - LoggingConfig: zerolog level and format

# Environment Variables

Selected variables (see envTransformFunc for the full table):
  - DUCKDB_PATH: database file (default: /data/mixgraph.duckdb)
  - STORE_CHUNK_SIZE: bytes per committed chunk (default: 1048576)
  - AUDIO_SAMPLE_RATE: audio clock rate (default: 44100)
  - AUDIO_TICKS_PER_SECOND: audio ticks per second (default: 100)
  - VIDEO_FRAME_RATE: video ticks per second (default: 30)
  - PERSIST_QUEUE_SIZE: chunks buffered ahead of the store (default: 32)
  - WAL_ENABLED, WAL_PATH: chunk journal
  - NATS_URL: publish status events to NATS instead of in-process only
  - HTTP_PORT: ops endpoint port (default: 9464)
  - LOG_LEVEL, LOG_FORMAT

# Validation

Load runs struct-tag validation (go-playground/validator, through the
validation package) followed by cross-field checks in Validate, such as the
requirement that the audio sample rate divides evenly into ticks.
*/
package config
