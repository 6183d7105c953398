// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Setenv("HOLDPTY_CONFIG", "")

	defaults, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if defaults.RingCapacity != DefaultRingCapacity {
		t.Errorf("RingCapacity: got %d, want %d", defaults.RingCapacity, DefaultRingCapacity)
	}
	if defaults.Columns != DefaultColumns || defaults.Rows != DefaultRows {
		t.Errorf("geometry: got %dx%d, want %dx%d", defaults.Columns, defaults.Rows, DefaultColumns, DefaultRows)
	}
}

func TestLoadPartialConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdpty.yaml")
	if err := os.WriteFile(path, []byte("ringCapacity: 4096\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOLDPTY_CONFIG", path)

	defaults, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if defaults.RingCapacity != 4096 {
		t.Errorf("RingCapacity: got %d, want 4096", defaults.RingCapacity)
	}
	// Unspecified fields keep built-in defaults.
	if defaults.Columns != DefaultColumns || defaults.Rows != DefaultRows {
		t.Errorf("geometry: got %dx%d, want %dx%d", defaults.Columns, defaults.Rows, DefaultColumns, DefaultRows)
	}
}

func TestLoadMissingConfigFileIsError(t *testing.T) {
	t.Setenv("HOLDPTY_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("Load with missing explicit config file: got nil error")
	}
}

func TestLoadMalformedConfigFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdpty.yaml")
	if err := os.WriteFile(path, []byte("ringCapacity: [not a number\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOLDPTY_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("Load with malformed config file: got nil error")
	}
}

func TestLingerDefaults(t *testing.T) {
	t.Setenv("HOLDPTY_LINGER_MS", "")
	if got := Linger(); got != DefaultLinger {
		t.Errorf("unset: got %v, want %v", got, DefaultLinger)
	}

	t.Setenv("HOLDPTY_LINGER_MS", "garbage")
	if got := Linger(); got != DefaultLinger {
		t.Errorf("unparseable: got %v, want %v", got, DefaultLinger)
	}
}

func TestLingerClampAndParse(t *testing.T) {
	cases := []struct {
		value string
		want  time.Duration
	}{
		{"200", 200 * time.Millisecond},
		{"5000", 5 * time.Second},
		{"0", MinimumLinger},
		{"-50", MinimumLinger},
	}
	for _, c := range cases {
		t.Setenv("HOLDPTY_LINGER_MS", c.value)
		if got := Linger(); got != c.want {
			t.Errorf("HOLDPTY_LINGER_MS=%s: got %v, want %v", c.value, got, c.want)
		}
	}
}
