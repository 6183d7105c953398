// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package holder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/holdpty/holdpty/lib/netutil"
	"github.com/holdpty/holdpty/registry"
)

// dialTimeout bounds the peer's initial endpoint dial. Distinct from
// the registry's stale probe: a peer that found metadata expects a
// live holder and can afford to wait longer.
const dialTimeout = 2 * time.Second

// RemoteError is a diagnostic the holder sent in an ERROR frame, such
// as a protocol violation or the active-attachment exclusivity
// message.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// Peer is the client side of a session connection: the protocol
// runtime that front-ends (attach, view, logs) and tests build on, so
// none of them re-implement framing.
//
// After ConnectPeer returns, the handshake is complete: Ack holds the
// holder's HELLO_ACK and Frames delivers everything after it in wire
// order — replay DATA_OUT, REPLAY_END, live DATA_OUT, and finally
// EXIT. The channel closes when the holder hangs up.
type Peer struct {
	// Ack is the holder's handshake response.
	Ack HelloAck

	conn      net.Conn
	frames    chan Frame
	logger    *slog.Logger
	closeOnce sync.Once

	mu      sync.Mutex
	readErr error
}

// ConnectPeer dials the session endpoint, performs the handshake for
// the requested mode, and returns a running Peer.
//
// A session with no metadata record returns registry.ErrNotFound; a
// record whose endpoint does not answer returns a dial error. Both are
// local conditions — the holder never transmits "not found". A
// handshake rejection (version mismatch, second attach) returns the
// holder's diagnostic as a *RemoteError.
func ConnectPeer(directory, name string, mode Mode, logger *slog.Logger) (*Peer, error) {
	if directory == "" {
		directory = registry.Dir()
	}
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := registry.ReadMetadata(directory, name); err != nil {
		return nil, err
	}

	conn, err := registry.DialEndpoint(directory, name, dialTimeout)
	if err != nil {
		return nil, err
	}

	if err := WriteFrame(conn, NewHelloFrame(mode)); err != nil {
		conn.Close()
		return nil, err
	}

	peer := &Peer{
		conn:   conn,
		frames: make(chan Frame, 64),
		logger: logger,
	}

	decoder := &Decoder{}
	pending, err := peer.awaitAck(decoder)
	if err != nil {
		conn.Close()
		return nil, err
	}

	go peer.readLoop(decoder, pending)
	return peer, nil
}

// awaitAck reads until the holder's first meaningful frame: HELLO_ACK
// on success, ERROR on rejection. Unknown frame types are skipped for
// forward compatibility. Returns any frames decoded after the ack so
// the read loop can deliver them before touching the socket again.
func (p *Peer) awaitAck(decoder *Decoder) ([]Frame, error) {
	buffer := make([]byte, ptyReadBufferSize)
	for {
		n, readErr := p.conn.Read(buffer)
		if n > 0 {
			frames, decodeErr := decoder.Feed(buffer[:n])
			for i, frame := range frames {
				switch frame.Type {
				case FrameHelloAck:
					ack, err := ParseHelloAckPayload(frame.Payload)
					if err != nil {
						return nil, err
					}
					p.Ack = ack
					return frames[i+1:], nil
				case FrameError:
					return nil, &RemoteError{Message: string(frame.Payload)}
				default:
					// Skip anything unrecognized before the ack.
				}
			}
			if decodeErr != nil {
				return nil, decodeErr
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil, errors.New("holder closed the connection before completing the handshake")
			}
			return nil, fmt.Errorf("reading handshake response: %w", readErr)
		}
	}
}

// readLoop decodes frames from the socket and delivers the known ones
// in order. The frames channel closes on EOF or a stream error; Err
// reports whether the end was abnormal.
func (p *Peer) readLoop(decoder *Decoder, pending []Frame) {
	defer close(p.frames)

	for _, frame := range pending {
		p.deliver(frame)
	}

	buffer := make([]byte, ptyReadBufferSize)
	for {
		n, readErr := p.conn.Read(buffer)
		if n > 0 {
			frames, decodeErr := decoder.Feed(buffer[:n])
			for _, frame := range frames {
				p.deliver(frame)
			}
			if decodeErr != nil {
				p.setErr(decodeErr)
				return
			}
		}
		if readErr != nil {
			if !netutil.IsExpectedCloseError(readErr) {
				p.setErr(readErr)
			}
			return
		}
	}
}

// deliver forwards a frame to the consumer, dropping unknown types
// (the forward-compatibility skip rule).
func (p *Peer) deliver(frame Frame) {
	switch frame.Type {
	case FrameDataOut, FrameReplayEnd, FrameExit, FrameError:
		p.frames <- frame
	default:
		p.logger.Debug("skipping unknown frame type", "type", frame.Type)
	}
}

func (p *Peer) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// Err returns the terminal stream error, or nil if the connection
// ended cleanly. Meaningful once Frames has closed.
func (p *Peer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readErr
}

// Frames delivers holder frames in wire order. The channel closes when
// the holder hangs up or the stream fails (see Err).
func (p *Peer) Frames() <-chan Frame { return p.frames }

// ReadReplay consumes frames up to and including REPLAY_END and
// returns the concatenated replay bytes. Call it immediately after
// ConnectPeer; for logs mode this is the entire conversation.
func (p *Peer) ReadReplay() ([]byte, error) {
	var replay []byte
	for frame := range p.frames {
		switch frame.Type {
		case FrameDataOut:
			replay = append(replay, frame.Payload...)
		case FrameReplayEnd:
			return replay, nil
		case FrameError:
			return nil, &RemoteError{Message: string(frame.Payload)}
		case FrameExit:
			code, err := ParseExitPayload(frame.Payload)
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("session exited with code %d before completing replay", code)
		}
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return nil, io.ErrUnexpectedEOF
}

// SendInput sends stdin bytes to the holder. Only honored when this
// peer holds the attach slot; the holder silently ignores it
// otherwise.
func (p *Peer) SendInput(data []byte) error {
	return WriteFrame(p.conn, NewDataInFrame(data))
}

// SendResize forwards new terminal dimensions to the holder. Attach
// only, like SendInput.
func (p *Peer) SendResize(columns, rows uint16) error {
	return WriteFrame(p.conn, NewResizeFrame(columns, rows))
}

// Close tears down the connection. Safe to call multiple times and
// concurrently with a draining Frames consumer.
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		p.conn.Close()
	})
	return nil
}
