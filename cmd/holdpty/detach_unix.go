// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// detachSysProcAttr detaches the background holder from this terminal
// session so it survives the CLI exiting.
func detachSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
