// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"golang.org/x/term"
)

// enterRawMode puts stdin into raw mode for interactive attach and
// foreground sessions, returning a restore function. Errors (stdin not
// a terminal) leave the terminal untouched.
func enterRawMode() (restore func(), err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}, os.ErrInvalid
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return func() {}, err
	}
	return func() { _ = term.Restore(fd, state) }, nil
}
