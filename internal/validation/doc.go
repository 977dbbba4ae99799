// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

// Package validation wraps go-playground/validator v10 with a process-wide
// singleton, mixgraph-specific rules and readable error messages.
//
// Field names in errors are reported by their koanf path segment
// ("sample_rate", not "SampleRate") so a message points at the key the
// operator actually wrote in config.yaml.
//
// Custom rules:
//   - bytesize: a DuckDB memory limit such as "512MB" or "1.5GiB"
package validation
