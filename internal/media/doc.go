// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

// Package media defines the timestamped buffers that flow along graph
// connections and their byte encoding for persistence.
//
// Audio is interleaved float32 PCM, video is a single RGBA frame and control
// carries discrete events. Every buffer is stamped with session clock time so
// nodes in different clock domains can align by time instead of tick count.
package media
