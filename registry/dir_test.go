// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDirPrefersExplicitOverride(t *testing.T) {
	t.Setenv("HOLDPTY_DIR", "/somewhere/explicit")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	if got := Dir(); got != "/somewhere/explicit" {
		t.Errorf("Dir: got %q, want the HOLDPTY_DIR value verbatim", got)
	}
}

func TestDirUsesRuntimeDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG_RUNTIME_DIR is a POSIX convention")
	}
	t.Setenv("HOLDPTY_DIR", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	if got := Dir(); got != filepath.Join("/run/user/1000", "dt") {
		t.Errorf("Dir: got %q, want XDG_RUNTIME_DIR/dt", got)
	}
}

func TestDirFallsBackToPerUserTmp(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("per-user /tmp fallback is a POSIX convention")
	}
	t.Setenv("HOLDPTY_DIR", "")
	t.Setenv("XDG_RUNTIME_DIR", "")

	want := filepath.Join("/tmp", fmt.Sprintf("dt-%d", os.Getuid()))
	if got := Dir(); got != want {
		t.Errorf("Dir: got %q, want %q", got, want)
	}
}

func TestEnsureDirCreatesOwnerOnly(t *testing.T) {
	t.Parallel()

	directory := filepath.Join(t.TempDir(), "nested", "dt")
	if err := EnsureDir(directory); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}

	info, err := os.Stat(directory)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("EnsureDir did not create a directory")
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o700 {
		t.Errorf("permissions: got %o, want 0700", info.Mode().Perm())
	}
}
