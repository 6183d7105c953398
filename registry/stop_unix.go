// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package registry

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Stop terminates a session by signaling its child process. SIGTERM is
// cooperative: the child exits, the holder's PTY reaches EOF, and the
// normal drain and shutdown path cleans everything up. Returns
// ErrNotFound if the child is already gone.
func Stop(metadata Metadata) error {
	if metadata.ChildPID <= 0 {
		return fmt.Errorf("session %q has no child pid: %w", metadata.Name, ErrNotFound)
	}
	if err := unix.Kill(metadata.ChildPID, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("session %q child %d not running: %w", metadata.Name, metadata.ChildPID, ErrNotFound)
		}
		return fmt.Errorf("signaling child %d of session %q: %w", metadata.ChildPID, metadata.Name, err)
	}
	return nil
}
