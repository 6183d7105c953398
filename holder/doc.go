// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

// Package holder implements the holdpty session core: a long-lived
// process that owns one pseudo-terminal, one bounded history ring, and
// one listening local-IPC endpoint, and serves interactive clients over
// a framed binary protocol.
//
// The package is organized around the session data flow:
//
//   - protocol.go: wire format for the session stream (framed binary messages)
//   - decoder.go: incremental frame decoder tolerating arbitrary chunking
//   - ringbuffer.go: bounded ring of recent PTY output for replay
//   - holder.go: session lifecycle (spawn, listen, broadcast, drain, shutdown)
//   - connection.go: per-client handshake and post-handshake state machine
//   - peer.go: the client-side protocol runtime used by front-ends and tests
//   - pty_unix.go / pty_windows.go: platform PTY backends
//
// Discovery and metadata live in the registry package; the holder only
// writes its own record and removes it on shutdown.
package holder
