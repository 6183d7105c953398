// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package registry

import (
	"fmt"
	"net"
	"os"
	"time"
)

// ListenEndpoint opens the session's listening endpoint: a filesystem
// socket at {dir}/{name}.sock. Any leftover socket file from a crashed
// holder is unlinked first.
func ListenEndpoint(directory, name string) (net.Listener, error) {
	path := EndpointPath(directory, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	return listener, nil
}

// DialEndpoint connects to the session's endpoint, failing after
// timeout. A zero timeout blocks indefinitely.
func DialEndpoint(directory, name string, timeout time.Duration) (net.Conn, error) {
	path := EndpointPath(directory, name)
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", path, err)
	}
	return conn, nil
}

// RemoveEndpoint unlinks the socket file. Named pipes self-release on
// Windows; on POSIX the holder removes the file during shutdown.
func RemoveEndpoint(directory, name string) error {
	if err := os.Remove(EndpointPath(directory, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing socket for %s: %w", name, err)
	}
	return nil
}
