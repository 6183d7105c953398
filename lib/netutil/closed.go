// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies connection errors for the holder's
// broadcast and teardown paths.
package netutil

import (
	"errors"
	"io"
	"net"
)

// IsExpectedCloseError reports whether err is a normal connection
// termination: EOF, closed connection, broken pipe, or connection
// reset. These occur during normal teardown when one side disconnects
// and the other side's in-flight read or write fails as a result.
//
// The holder's half-close path (EXIT then CloseWrite) produces EOF on
// the peer; force-destroy during shutdown produces ECONNRESET or EPIPE
// on whichever side still had bytes in flight. All are expected and
// must not be logged as errors.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return isClosedErrno(err)
}
