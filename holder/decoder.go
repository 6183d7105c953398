// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package holder

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrFrameTooLarge is returned when a frame header declares a payload
// longer than MaxPayload. The stream is unrecoverable past this point:
// the remainder cannot be reframed, so the decoder stays failed until
// Reset.
var ErrFrameTooLarge = errors.New("frame payload exceeds maximum length")

// Decoder incrementally decodes frames from a byte stream. Feed it
// chunks in whatever sizes the transport delivers — single bytes,
// header-spanning reads, multiple frames at once — and it yields
// complete frames in order, retaining any trailing partial frame for
// the next call.
//
// Decoder is not safe for concurrent use; each connection owns one.
type Decoder struct {
	buffer []byte
	failed error
}

// Feed appends chunk to the decoder's buffer and returns all complete
// frames now available, in arrival order. Payloads are copies owned by
// the caller.
//
// If a frame header declares a payload longer than MaxPayload, Feed
// returns the frames decoded before the oversize header along with an
// error wrapping ErrFrameTooLarge, and every subsequent Feed returns
// the same error until Reset is called.
func (d *Decoder) Feed(chunk []byte) ([]Frame, error) {
	if d.failed != nil {
		return nil, d.failed
	}

	d.buffer = append(d.buffer, chunk...)

	var frames []Frame
	for {
		if len(d.buffer) < frameHeaderLength {
			return frames, nil
		}
		payloadLength := binary.BigEndian.Uint32(d.buffer[1:5])
		if payloadLength > MaxPayload {
			d.failed = fmt.Errorf("%s frame declares %d byte payload: %w",
				frameTypeName(d.buffer[0]), payloadLength, ErrFrameTooLarge)
			d.buffer = nil
			return frames, d.failed
		}
		frameLength := frameHeaderLength + int(payloadLength)
		if len(d.buffer) < frameLength {
			return frames, nil
		}

		payload := make([]byte, payloadLength)
		copy(payload, d.buffer[frameHeaderLength:frameLength])
		frames = append(frames, Frame{Type: d.buffer[0], Payload: payload})
		d.buffer = d.buffer[frameLength:]
	}
}

// Buffered returns the number of bytes retained from a trailing
// partial frame.
func (d *Decoder) Buffered() int { return len(d.buffer) }

// Reset discards any buffered remainder and clears a failed state,
// returning the decoder to its initial condition.
func (d *Decoder) Reset() {
	d.buffer = nil
	d.failed = nil
}
