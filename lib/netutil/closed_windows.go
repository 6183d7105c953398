// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"

	"golang.org/x/sys/windows"
)

func isClosedErrno(err error) bool {
	var errno windows.Errno
	if errors.As(err, &errno) {
		return errno == windows.WSAECONNRESET ||
			errno == windows.ERROR_BROKEN_PIPE ||
			errno == windows.ERROR_PIPE_NOT_CONNECTED
	}
	return false
}
