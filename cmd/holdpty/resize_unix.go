// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package main

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/holdpty/holdpty/holder"
)

// watchResize forwards terminal size changes to a foreground holder.
func watchResize(session *holder.Holder) {
	notifications := make(chan os.Signal, 1)
	signal.Notify(notifications, unix.SIGWINCH)
	go func() {
		for range notifications {
			if width, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				session.Resize(uint16(width), uint16(height))
			}
		}
	}()
}

// watchPeerResize forwards terminal size changes to an attached peer.
func watchPeerResize(peer *holder.Peer) {
	notifications := make(chan os.Signal, 1)
	signal.Notify(notifications, unix.SIGWINCH)
	go func() {
		for range notifications {
			if width, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				_ = peer.SendResize(uint16(width), uint16(height))
			}
		}
	}()
}
