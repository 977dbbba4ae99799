// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package config

import (
	"fmt"

	"github.com/tomtom215/mixgraph/internal/validation"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks struct tags, then cross-field constraints.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateDomains(); err != nil {
		return err
	}
	if err := c.validateWAL(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validateDomains requires at least one clock domain and an audio tick that
// covers a whole number of sample frames.
func (c *Config) validateDomains() error {
	if !c.Audio.Enabled && !c.Video.Enabled {
		return fmt.Errorf("at least one of AUDIO_ENABLED or VIDEO_ENABLED must be true")
	}
	if c.Audio.Enabled && c.Audio.SampleRate%c.Audio.TicksPerSecond != 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE (%d) must be divisible by AUDIO_TICKS_PER_SECOND (%d)",
			c.Audio.SampleRate, c.Audio.TicksPerSecond)
	}
	if c.Audio.Enabled && c.Audio.Tolerance >= c.Audio.TickInterval() {
		return fmt.Errorf("AUDIO_TOLERANCE (%s) must be shorter than one tick (%s)",
			c.Audio.Tolerance, c.Audio.TickInterval())
	}
	if c.Video.Enabled && c.Video.Tolerance >= c.Video.FrameInterval() {
		return fmt.Errorf("VIDEO_TOLERANCE (%s) must be shorter than one frame (%s)",
			c.Video.Tolerance, c.Video.FrameInterval())
	}
	return nil
}

func (c *Config) validateWAL() error {
	if c.WAL.Enabled && c.WAL.Path == "" {
		return fmt.Errorf("WAL_PATH is required when WAL_ENABLED=true")
	}
	return nil
}

// validateStore keeps one audio tick of the widest configuration well inside a chunk.
func (c *Config) validateStore() error {
	if !c.Audio.Enabled {
		return nil
	}
	tickBytes := c.Audio.FramesPerTick() * c.Audio.Channels * 4
	if c.Store.ChunkSize < tickBytes {
		return fmt.Errorf("STORE_CHUNK_SIZE (%d) must hold at least one audio tick (%d bytes)",
			c.Store.ChunkSize, tickBytes)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
