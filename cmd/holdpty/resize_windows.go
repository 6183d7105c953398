// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"time"

	"golang.org/x/term"

	"github.com/holdpty/holdpty/holder"
)

// resizePollInterval is how often the console size is sampled. Windows
// has no SIGWINCH equivalent for console applications, so size changes
// are detected by polling.
const resizePollInterval = 500 * time.Millisecond

// watchResize forwards console size changes to a foreground holder.
func watchResize(session *holder.Holder) {
	go pollResize(func(width, height uint16) {
		session.Resize(width, height)
	})
}

// watchPeerResize forwards console size changes to an attached peer.
func watchPeerResize(peer *holder.Peer) {
	go pollResize(func(width, height uint16) {
		_ = peer.SendResize(width, height)
	})
}

func pollResize(apply func(width, height uint16)) {
	fd := int(os.Stdout.Fd())
	lastWidth, lastHeight, err := term.GetSize(fd)
	if err != nil {
		return
	}
	for {
		time.Sleep(resizePollInterval)
		width, height, err := term.GetSize(fd)
		if err != nil {
			return
		}
		if width != lastWidth || height != lastHeight {
			lastWidth, lastHeight = width, height
			apply(uint16(width), uint16(height))
		}
	}
}
