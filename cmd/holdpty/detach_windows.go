// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// detachSysProcAttr detaches the background holder from this console
// so it survives the CLI exiting.
func detachSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.DETACHED_PROCESS | windows.CREATE_NEW_PROCESS_GROUP,
	}
}
