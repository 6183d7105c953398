// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package holder

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/holdpty/holdpty/lib/netutil"
)

// sendQueueDepth is the per-client outbound high-water mark in frames.
// A client whose queue fills up is disconnected rather than allowed to
// stall the PTY path.
const sendQueueDepth = 256

// writeTimeout bounds a single frame write to a client socket.
const writeTimeout = 10 * time.Second

// client is one accepted connection. Clients are passive containers:
// the holder drives every transition, and nothing here refers back to
// the holder.
//
// mode is written only during the handshake (under the holder mutex)
// and read by the broadcast and dispatch paths. The empty string means
// the handshake has not completed.
type client struct {
	conn net.Conn

	mode Mode

	// send carries encoded frames to the writer goroutine. Closing it
	// (always via closeSendLocked) tells the writer to flush and
	// half-close. sendClosed is guarded by the holder mutex.
	send       chan []byte
	sendClosed bool

	// writerDone is closed when the writer goroutine has finished, at
	// which point the connection may be fully closed without cutting
	// off buffered frames.
	writerDone chan struct{}
}

func newClient(conn net.Conn) *client {
	return &client{
		conn:       conn,
		send:       make(chan []byte, sendQueueDepth),
		writerDone: make(chan struct{}),
	}
}

// enqueueLocked queues an encoded frame for a client. Caller holds the
// holder mutex. A full queue means the client cannot keep up with the
// PTY: it is disconnected, and the ring remains the authority for the
// history it missed.
func (h *Holder) enqueueLocked(connected *client, encoded []byte) {
	if connected.sendClosed {
		return
	}
	select {
	case connected.send <- encoded:
	default:
		h.logger.Warn("disconnecting slow client", "remote", connected.conn.RemoteAddr())
		connected.conn.Close()
		h.closeSendLocked(connected)
	}
}

// closeSendLocked closes a client's send queue once. Caller holds the
// holder mutex.
func (h *Holder) closeSendLocked(connected *client) {
	if !connected.sendClosed {
		connected.sendClosed = true
		close(connected.send)
	}
}

// clientWriter drains a client's send queue to its socket. On queue
// close it flushes and half-closes so the peer observes FIN after the
// final frame. On a write failure it force-closes the connection
// (which unblocks the reader) and keeps draining so enqueuers and
// removeClient never block.
func (h *Holder) clientWriter(connected *client) {
	defer close(connected.writerDone)

	for encoded := range connected.send {
		_ = connected.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := connected.conn.Write(encoded); err != nil {
			if !netutil.IsExpectedCloseError(err) {
				h.logger.Debug("client write failed", "error", err)
			}
			connected.conn.Close()
			for range connected.send {
			}
			return
		}
	}
	halfClose(connected.conn)
}

// halfClose shuts down the write side when the transport supports it
// (unix sockets and named pipes both do), so the peer reads a clean
// EOF after the final frame while the read side stays open.
func halfClose(conn net.Conn) {
	type closeWriter interface{ CloseWrite() error }
	if cw, ok := conn.(closeWriter); ok {
		_ = cw.CloseWrite()
		return
	}
	conn.Close()
}

// handleConnection is the per-client read loop: decode frames, demand
// HELLO first, then dispatch post-handshake traffic until the peer
// disconnects or violates the protocol.
func (h *Holder) handleConnection(connected *client) {
	defer h.removeClient(connected)

	decoder := &Decoder{}
	buffer := make([]byte, ptyReadBufferSize)
	for {
		n, err := connected.conn.Read(buffer)
		if n > 0 {
			frames, decodeErr := decoder.Feed(buffer[:n])
			for _, frame := range frames {
				if !h.dispatchFrame(connected, frame) {
					return
				}
			}
			if decodeErr != nil {
				h.rejectClient(connected, fmt.Sprintf("protocol error: %v", decodeErr))
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// dispatchFrame routes one decoded frame. Returns false when the
// connection should stop reading.
func (h *Holder) dispatchFrame(connected *client, frame Frame) bool {
	if connected.mode == "" {
		return h.handshake(connected, frame)
	}

	switch frame.Type {
	case FrameDataIn:
		// Only the exclusive writer drives the PTY; a view client
		// sending input is silently ignored.
		if connected.mode == ModeAttach && len(frame.Payload) > 0 {
			if _, err := h.pty.Write(frame.Payload); err != nil {
				// The PTY is closing down; the exit path handles it.
				h.logger.Debug("pty input write failed", "error", err)
			}
		}
	case FrameResize:
		if connected.mode == ModeAttach {
			columns, rows, err := ParseResizePayload(frame.Payload)
			if err != nil {
				// Malformed resize: drop the frame, keep the session.
				return true
			}
			h.Resize(columns, rows)
		}
	default:
		// Unknown or out-of-place frame types after the handshake are
		// ignored for forward compatibility.
	}
	return true
}

// handshake processes the first frame from a client, which must be a
// valid HELLO. On success the client is granted its mode and receives
// HELLO_ACK, the ring replay, and REPLAY_END, atomically ordered ahead
// of any live output. On failure the client receives ERROR and FIN.
func (h *Holder) handshake(connected *client, frame Frame) bool {
	if frame.Type != FrameHello {
		h.rejectClient(connected, "Expected HELLO")
		return false
	}

	hello, err := ParseHelloPayload(frame.Payload)
	if err != nil {
		h.rejectClient(connected, err.Error())
		return false
	}
	if hello.ProtocolVersion != ProtocolVersion {
		h.rejectClient(connected, fmt.Sprintf(
			"unsupported protocol version %d (this holder speaks %d)",
			hello.ProtocolVersion, ProtocolVersion))
		return false
	}
	if !hello.Mode.valid() {
		h.rejectClient(connected, fmt.Sprintf("unknown mode %q", hello.Mode))
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if hello.Mode == ModeAttach && h.writer != nil {
		message := h.activeAttachmentMessage()
		h.enqueueLocked(connected, EncodeFrame(NewErrorFrame(message)))
		h.closeSendLocked(connected)
		return false
	}

	connected.mode = hello.Mode
	if hello.Mode == ModeAttach {
		h.writer = connected
	}

	ack := HelloAck{
		Name:     h.name,
		Columns:  h.columns,
		Rows:     h.rows,
		Mode:     hello.Mode,
		PID:      os.Getpid(),
		ChildPID: h.pty.Pid(),
	}
	h.enqueueLocked(connected, EncodeFrame(NewHelloAckFrame(ack)))

	if snapshot := h.ring.Snapshot(); len(snapshot) > 0 {
		h.enqueueLocked(connected, EncodeFrame(NewDataOutFrame(snapshot)))
	}
	h.enqueueLocked(connected, EncodeFrame(NewReplayEndFrame()))

	switch {
	case hello.Mode == ModeLogs:
		// Logs is replay-only: flush and half-close. The read side
		// stays open until the peer closes, which cleans up the
		// connection.
		h.closeSendLocked(connected)
	case h.exited:
		// The child is already gone; this connection gets its exit
		// notification immediately instead of a live stream.
		h.enqueueLocked(connected, EncodeFrame(NewExitFrame(int32(h.exitCode))))
		h.closeSendLocked(connected)
	}

	h.logger.Debug("client connected", "mode", hello.Mode)
	return true
}

// rejectClient sends an ERROR frame and initiates close. The writer
// flushes the frame before the half-close, so the peer always sees the
// diagnostic.
func (h *Holder) rejectClient(connected *client, message string) {
	h.logger.Debug("rejecting client", "reason", message)
	h.mu.Lock()
	h.enqueueLocked(connected, EncodeFrame(NewErrorFrame(message)))
	h.closeSendLocked(connected)
	h.mu.Unlock()
}

// removeClient tears down a connection after its read loop ends:
// drop it from the client set, release the writer slot if held, flush
// and stop the writer, then close the socket.
func (h *Holder) removeClient(connected *client) {
	h.mu.Lock()
	if h.clients != nil {
		delete(h.clients, connected)
	}
	if h.writer == connected {
		h.writer = nil
	}
	h.closeSendLocked(connected)
	h.mu.Unlock()

	<-connected.writerDone
	connected.conn.Close()
}
