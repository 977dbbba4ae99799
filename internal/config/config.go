// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package config

import "time"

// Config is the complete mixgraph configuration.
type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	Store      StoreConfig      `koanf:"store"`
	Audio      AudioConfig      `koanf:"audio"`
	Video      VideoConfig      `koanf:"video"`
	Engine     EngineConfig     `koanf:"engine"`
	Persist    PersistConfig    `koanf:"persist"`
	WAL        WALConfig        `koanf:"wal"`
	Events     EventsConfig     `koanf:"events"`
	Server     ServerConfig     `koanf:"server"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file; ":memory:" runs without a file.
	Path                   string `koanf:"path" validate:"required"`
	MaxMemory              string `koanf:"max_memory" validate:"required,bytesize"`
	Threads                int    `koanf:"threads" validate:"gte=0"`
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
}

// StoreConfig tunes the stream store.
type StoreConfig struct {
	ChunkSize    int           `koanf:"chunk_size" validate:"gte=1024"`
	CacheEntries int           `koanf:"cache_entries" validate:"gte=0"`
	WriterWait   time.Duration `koanf:"writer_wait" validate:"gt=0"`
}

// AudioConfig describes the audio clock domain.
type AudioConfig struct {
	Enabled        bool          `koanf:"enabled"`
	SampleRate     int           `koanf:"sample_rate" validate:"gte=8000,lte=192000"`
	Channels       int           `koanf:"channels" validate:"gte=1,lte=8"`
	TicksPerSecond int           `koanf:"ticks_per_second" validate:"gte=1,lte=1000"`
	Tolerance      time.Duration `koanf:"tolerance" validate:"gte=0"`
	SinkQueueSize  int           `koanf:"sink_queue_size" validate:"gte=1"`
	MaxSlowdown    int           `koanf:"max_slowdown" validate:"gte=1,lte=64"`
}

// FramesPerTick returns the number of sample frames processed per tick.
func (a AudioConfig) FramesPerTick() int {
	return a.SampleRate / a.TicksPerSecond
}

// TickInterval returns the wall-clock duration of one audio tick.
func (a AudioConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(a.TicksPerSecond)
}

// VideoConfig describes the video clock domain.
type VideoConfig struct {
	Enabled       bool          `koanf:"enabled"`
	FrameRate     int           `koanf:"frame_rate" validate:"gte=1,lte=240"`
	Width         int           `koanf:"width" validate:"gte=16"`
	Height        int           `koanf:"height" validate:"gte=16"`
	Tolerance     time.Duration `koanf:"tolerance" validate:"gte=0"`
	SinkQueueSize int           `koanf:"sink_queue_size" validate:"gte=1"`
	MaxSlowdown   int           `koanf:"max_slowdown" validate:"gte=1,lte=64"`
}

// FrameInterval returns the wall-clock duration of one video frame.
func (v VideoConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(v.FrameRate)
}

// EngineConfig tunes the graph engine control path.
type EngineConfig struct {
	CommandQueueSize int           `koanf:"command_queue_size" validate:"gte=1"`
	CommandTimeout   time.Duration `koanf:"command_timeout" validate:"gt=0"`
	BridgeCapacity   int           `koanf:"bridge_capacity" validate:"gte=1"`
	DrainTimeout     time.Duration `koanf:"drain_timeout" validate:"gt=0"`
	// LagWarning is the number of ticks a domain may fall behind wall clock
	// before a lag warning is logged.
	LagWarning int `koanf:"lag_warning" validate:"gte=1"`
	// Demo builds a sine-to-recording graph and starts the audio domain
	// on startup.
	Demo bool `koanf:"demo"`
	// Workspace names a saved layout restored at startup and saved again
	// on shutdown. Empty disables both.
	Workspace string `koanf:"workspace" validate:"omitempty,max=128"`
}

// PersistConfig tunes the persistence queue between sinks and the store.
type PersistConfig struct {
	QueueSize       int           `koanf:"queue_size" validate:"gte=1"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// WALConfig holds the BadgerDB chunk journal settings.
type WALConfig struct {
	Enabled          bool          `koanf:"enabled"`
	Path             string        `koanf:"path"`
	SyncWrites       bool          `koanf:"sync_writes"`
	MemTableSize     int64         `koanf:"mem_table_size" validate:"gte=0"`
	ValueLogFileSize int64         `koanf:"value_log_file_size" validate:"gte=0"`
	NumCompactors    int           `koanf:"num_compactors" validate:"gte=0"`
	Compression      bool          `koanf:"compression"`
	GCInterval       time.Duration `koanf:"gc_interval" validate:"gte=0"`
	GCRatio          float64       `koanf:"gc_ratio" validate:"gte=0,lt=1"`
}

// EventsConfig selects the status bus backend.
type EventsConfig struct {
	Enabled     bool   `koanf:"enabled"`
	NATSURL     string `koanf:"nats_url"`
	TopicPrefix string `koanf:"topic_prefix" validate:"required"`
	BufferSize  int    `koanf:"buffer_size" validate:"gte=1"`
}

// ServerConfig holds the ops HTTP endpoint settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	// RateLimitRequests caps requests per client IP per RateLimitWindow;
	// zero disables limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// SupervisorConfig holds suture restart policy settings.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
