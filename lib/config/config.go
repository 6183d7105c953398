// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides process-scoped configuration for holdpty.
//
// Configuration is read once at holder construction and never mutated
// afterward. Two environment variables are contractual:
//
//   - HOLDPTY_DIR overrides the session directory (resolved by the
//     registry package).
//   - HOLDPTY_LINGER_MS sets the shutdown linger in milliseconds.
//
// Additionally, HOLDPTY_CONFIG may point at a YAML file supplying
// defaults for session geometry and ring capacity. An unset variable
// means built-in defaults; there is no automatic discovery, so
// configuration stays deterministic and auditable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Built-in defaults, used when no config file overrides them.
const (
	// DefaultColumns and DefaultRows are the PTY size used when the
	// caller requests none.
	DefaultColumns = 120
	DefaultRows    = 40

	// DefaultRingCapacity is the history ring size in bytes.
	DefaultRingCapacity = 1 << 20
)

// Linger bounds for HOLDPTY_LINGER_MS.
const (
	// DefaultLinger is the shutdown linger when HOLDPTY_LINGER_MS is
	// unset or unparseable.
	DefaultLinger = 5 * time.Second

	// MinimumLinger is the clamp floor for zero or negative
	// HOLDPTY_LINGER_MS values, small enough for fast tests but
	// non-zero so buffered writes get a chance to flush.
	MinimumLinger = 10 * time.Millisecond
)

// Defaults holds the tunable session defaults. Zero fields in the
// config file fall back to the built-in constants.
type Defaults struct {
	// RingCapacity is the history ring size in bytes.
	RingCapacity int `yaml:"ringCapacity"`

	// Columns and Rows are the initial PTY size.
	Columns uint16 `yaml:"columns"`
	Rows    uint16 `yaml:"rows"`
}

// Load reads the defaults file named by HOLDPTY_CONFIG. An unset
// variable returns the built-in defaults. A set but unreadable or
// malformed file is an error: a configuration the operator asked for
// must not be silently ignored.
func Load() (Defaults, error) {
	defaults := Defaults{
		RingCapacity: DefaultRingCapacity,
		Columns:      DefaultColumns,
		Rows:         DefaultRows,
	}

	path := os.Getenv("HOLDPTY_CONFIG")
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Defaults{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fileDefaults Defaults
	if err := yaml.Unmarshal(data, &fileDefaults); err != nil {
		return Defaults{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if fileDefaults.RingCapacity < 0 {
		return Defaults{}, fmt.Errorf("config file %s: ringCapacity must be positive, got %d", path, fileDefaults.RingCapacity)
	}
	if fileDefaults.RingCapacity > 0 {
		defaults.RingCapacity = fileDefaults.RingCapacity
	}
	if fileDefaults.Columns > 0 {
		defaults.Columns = fileDefaults.Columns
	}
	if fileDefaults.Rows > 0 {
		defaults.Rows = fileDefaults.Rows
	}
	return defaults, nil
}

// Linger returns the shutdown linger duration from HOLDPTY_LINGER_MS.
// Unset or unparseable values yield DefaultLinger. Zero and negative
// values clamp to MinimumLinger.
func Linger() time.Duration {
	raw := os.Getenv("HOLDPTY_LINGER_MS")
	if raw == "" {
		return DefaultLinger
	}
	milliseconds, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultLinger
	}
	if milliseconds <= 0 {
		return MinimumLinger
	}
	return time.Duration(milliseconds) * time.Millisecond
}
