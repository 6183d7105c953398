// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package registry

import (
	"errors"

	"golang.org/x/sys/unix"
)

// processAlive reports whether a process with the given pid exists.
// Signal 0 performs the existence check without delivering anything;
// EPERM means the process exists but belongs to another user, which
// still counts as alive.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}
