// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package holder

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Frame type constants for the session protocol wire format. Each
// message is a 5-byte header (1 byte type + 4 byte big-endian payload
// length) followed by the payload.
const (
	// FrameDataOut carries raw PTY output bytes, holder→client. The
	// payload is opaque terminal bytes passed through unmodified.
	FrameDataOut byte = 0x01

	// FrameDataIn carries raw stdin bytes, client→holder. Honored
	// only for the attach client; silently ignored otherwise.
	FrameDataIn byte = 0x02

	// FrameResize carries terminal dimensions, client→holder. Payload
	// is 4 bytes: columns (uint16 big-endian) then rows (uint16
	// big-endian). Honored only for the attach client.
	FrameResize byte = 0x03

	// FrameExit reports the child exit code, holder→client. Payload
	// is 4 bytes: int32 big-endian. Always the last frame on a
	// connection, followed by FIN.
	FrameExit byte = 0x04

	// FrameError carries a UTF-8 diagnostic message, holder→client.
	// Sent before closing a connection that violated the protocol or
	// lost the writer-slot race.
	FrameError byte = 0x05

	// FrameHello opens the session handshake, client→holder. Payload
	// is UTF-8 JSON (see Hello). Must be the first frame a client
	// sends.
	FrameHello byte = 0x06

	// FrameHelloAck accepts the handshake, holder→client. Payload is
	// UTF-8 JSON (see HelloAck). Precedes any FrameDataOut.
	FrameHelloAck byte = 0x07

	// FrameReplayEnd marks the end of history replay, holder→client.
	// Empty payload. Every frame after it carries live output.
	FrameReplayEnd byte = 0x08
)

// frameHeaderLength is the fixed size of a frame header: 1 byte type
// + 4 bytes payload length.
const frameHeaderLength = 5

// MaxPayload is the maximum allowed payload size (10 MiB). A frame
// declaring a larger length poisons the stream: the decoder fails
// permanently and the connection must be torn down.
const MaxPayload = 10 << 20

// ProtocolVersion is the handshake version this implementation speaks.
const ProtocolVersion = 1

// Mode is the access level a client requests in its Hello.
type Mode string

// Client modes. Attach is the exclusive writer; view is read-only
// live streaming; logs is a one-shot replay dump.
const (
	ModeAttach Mode = "attach"
	ModeView   Mode = "view"
	ModeLogs   Mode = "logs"
)

// valid reports whether the mode is one of the three wire values.
func (m Mode) valid() bool {
	return m == ModeAttach || m == ModeView || m == ModeLogs
}

// Frame is a single protocol message.
type Frame struct {
	Type    byte
	Payload []byte
}

// AppendFrame appends the encoded frame to dst and returns the
// extended slice.
func AppendFrame(dst []byte, frame Frame) []byte {
	var header [frameHeaderLength]byte
	header[0] = frame.Type
	binary.BigEndian.PutUint32(header[1:5], uint32(len(frame.Payload)))
	dst = append(dst, header[:]...)
	return append(dst, frame.Payload...)
}

// EncodeFrame returns the wire encoding of a frame.
func EncodeFrame(frame Frame) []byte {
	return AppendFrame(make([]byte, 0, frameHeaderLength+len(frame.Payload)), frame)
}

// WriteFrame writes a framed message to w.
func WriteFrame(w io.Writer, frame Frame) error {
	if _, err := w.Write(EncodeFrame(frame)); err != nil {
		return fmt.Errorf("write %s frame: %w", frameTypeName(frame.Type), err)
	}
	return nil
}

// frameTypeName returns a human-readable name for a frame type, used
// in error messages and logs.
func frameTypeName(frameType byte) string {
	switch frameType {
	case FrameDataOut:
		return "DATA_OUT"
	case FrameDataIn:
		return "DATA_IN"
	case FrameResize:
		return "RESIZE"
	case FrameExit:
		return "EXIT"
	case FrameError:
		return "ERROR"
	case FrameHello:
		return "HELLO"
	case FrameHelloAck:
		return "HELLO_ACK"
	case FrameReplayEnd:
		return "REPLAY_END"
	}
	return fmt.Sprintf("0x%02x", frameType)
}

// NewDataOutFrame creates a DATA_OUT frame carrying raw PTY bytes.
func NewDataOutFrame(data []byte) Frame {
	return Frame{Type: FrameDataOut, Payload: data}
}

// NewDataInFrame creates a DATA_IN frame carrying raw stdin bytes.
func NewDataInFrame(data []byte) Frame {
	return Frame{Type: FrameDataIn, Payload: data}
}

// NewResizeFrame creates a RESIZE frame with the given dimensions.
func NewResizeFrame(columns, rows uint16) Frame {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint16(payload[0:2], columns)
	binary.BigEndian.PutUint16(payload[2:4], rows)
	return Frame{Type: FrameResize, Payload: payload}
}

// ParseResizePayload extracts columns and rows from a RESIZE payload.
// Returns an error if the payload is not exactly 4 bytes.
func ParseResizePayload(payload []byte) (columns, rows uint16, err error) {
	if len(payload) != 4 {
		return 0, 0, fmt.Errorf("resize payload must be 4 bytes, got %d", len(payload))
	}
	columns = binary.BigEndian.Uint16(payload[0:2])
	rows = binary.BigEndian.Uint16(payload[2:4])
	return columns, rows, nil
}

// NewExitFrame creates an EXIT frame carrying the child exit code.
func NewExitFrame(code int32) Frame {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(code))
	return Frame{Type: FrameExit, Payload: payload}
}

// ParseExitPayload extracts the exit code from an EXIT payload.
// Returns an error if the payload is not exactly 4 bytes.
func ParseExitPayload(payload []byte) (int32, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("exit payload must be 4 bytes, got %d", len(payload))
	}
	return int32(binary.BigEndian.Uint32(payload)), nil
}

// NewErrorFrame creates an ERROR frame carrying a diagnostic message.
func NewErrorFrame(message string) Frame {
	return Frame{Type: FrameError, Payload: []byte(message)}
}

// NewReplayEndFrame creates an empty REPLAY_END frame.
func NewReplayEndFrame() Frame {
	return Frame{Type: FrameReplayEnd}
}

// Hello is the JSON payload of the client's opening HELLO frame.
type Hello struct {
	// Mode is the requested access level: "attach", "view", or "logs".
	Mode Mode `json:"mode"`

	// ProtocolVersion must be ProtocolVersion. The holder rejects
	// anything else so incompatible peers fail loudly at handshake
	// rather than mid-stream.
	ProtocolVersion int `json:"protocolVersion"`
}

// NewHelloFrame creates a HELLO frame for the given mode.
func NewHelloFrame(mode Mode) Frame {
	payload, err := json.Marshal(Hello{Mode: mode, ProtocolVersion: ProtocolVersion})
	if err != nil {
		// Hello contains a string and an int; marshaling cannot fail.
		panic(fmt.Sprintf("holder: marshal Hello: %v", err))
	}
	return Frame{Type: FrameHello, Payload: payload}
}

// ParseHelloPayload decodes a HELLO payload.
func ParseHelloPayload(payload []byte) (Hello, error) {
	var hello Hello
	if err := json.Unmarshal(payload, &hello); err != nil {
		return Hello{}, fmt.Errorf("invalid HELLO JSON: %w", err)
	}
	return hello, nil
}

// HelloAck is the JSON payload of the holder's HELLO_ACK frame.
type HelloAck struct {
	// Name is the session name.
	Name string `json:"name"`

	// Columns and Rows are the current PTY size.
	Columns uint16 `json:"cols"`
	Rows    uint16 `json:"rows"`

	// Mode echoes the granted access level.
	Mode Mode `json:"mode"`

	// PID is the holder process id.
	PID int `json:"pid"`

	// ChildPID is the child process id, carried as an extra field
	// that readers are free to ignore.
	ChildPID int `json:"childPid,omitempty"`
}

// NewHelloAckFrame creates a HELLO_ACK frame.
func NewHelloAckFrame(ack HelloAck) Frame {
	payload, err := json.Marshal(ack)
	if err != nil {
		panic(fmt.Sprintf("holder: marshal HelloAck: %v", err))
	}
	return Frame{Type: FrameHelloAck, Payload: payload}
}

// ParseHelloAckPayload decodes a HELLO_ACK payload.
func ParseHelloAckPayload(payload []byte) (HelloAck, error) {
	var ack HelloAck
	if err := json.Unmarshal(payload, &ack); err != nil {
		return HelloAck{}, fmt.Errorf("invalid HELLO_ACK JSON: %w", err)
	}
	return ack, nil
}
