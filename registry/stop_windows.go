// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Stop terminates a session. TerminateProcess is non-cooperative: the
// child dies without running its shutdown path, and the holder's drain
// loop may never observe a clean exit. Terminating the holder as well
// guarantees the endpoint and metadata are released (stale reaping
// collects the record on the next enumeration).
func Stop(metadata Metadata) error {
	childErr := terminate(metadata.ChildPID)
	holderErr := terminate(metadata.PID)
	if childErr != nil && holderErr != nil {
		return fmt.Errorf("session %q already stopped: %w", metadata.Name, ErrNotFound)
	}
	return nil
}

// terminate force-kills one process by pid.
func terminate(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	handle, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("opening process %d: %w", pid, err)
	}
	defer windows.CloseHandle(handle)
	if err := windows.TerminateProcess(handle, 1); err != nil {
		return fmt.Errorf("terminating process %d: %w", pid, err)
	}
	return nil
}
