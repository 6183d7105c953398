// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// ListenEndpoint opens the session's listening endpoint: a named pipe
// whose name embeds a fingerprint of the session directory (see
// EndpointPath). There is no stale file to unlink — a pipe name frees
// itself when its last handle closes.
func ListenEndpoint(directory, name string) (net.Listener, error) {
	path := EndpointPath(directory, name)
	listener, err := winio.ListenPipe(path, nil)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	return listener, nil
}

// DialEndpoint connects to the session's endpoint, failing after
// timeout. A zero timeout uses winio's default.
func DialEndpoint(directory, name string, timeout time.Duration) (net.Conn, error) {
	path := EndpointPath(directory, name)
	var deadline *time.Duration
	if timeout > 0 {
		deadline = &timeout
	}
	conn, err := winio.DialPipe(path, deadline)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", path, err)
	}
	return conn, nil
}

// RemoveEndpoint is a no-op on Windows: the pipe name releases itself
// when the holder's last handle closes.
func RemoveEndpoint(directory, name string) error {
	return nil
}
