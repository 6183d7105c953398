// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Dir resolves the session directory:
//
//  1. HOLDPTY_DIR, verbatim, if set.
//  2. On Windows, <system-temp>/dt.
//  3. $XDG_RUNTIME_DIR/dt if set.
//  4. /tmp/dt-<uid> when the real user id is available.
//  5. <system-temp>/dt.
//
// The directory is not created; call EnsureDir before writing into it.
func Dir() string {
	if directory := os.Getenv("HOLDPTY_DIR"); directory != "" {
		return directory
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.TempDir(), "dt")
	}
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "dt")
	}
	if uid := os.Getuid(); uid >= 0 {
		return filepath.Join("/tmp", fmt.Sprintf("dt-%d", uid))
	}
	return filepath.Join(os.TempDir(), "dt")
}

// EnsureDir creates the session directory on demand. On POSIX the
// directory is owner-only (0700): endpoints and metadata are
// local-user resources and never shared across accounts.
func EnsureDir(directory string) error {
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating session directory %s: %w", directory, err)
	}
	return nil
}
