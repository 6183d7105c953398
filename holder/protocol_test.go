// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package holder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// feedAll runs a frame stream through a fresh decoder in the given
// chunk sizes, cycling through the sizes until the stream is consumed.
func feedAll(t *testing.T, stream []byte, chunkSizes []int) []Frame {
	t.Helper()
	decoder := &Decoder{}
	var collected []Frame
	for offset, i := 0, 0; offset < len(stream); i++ {
		size := chunkSizes[i%len(chunkSizes)]
		if offset+size > len(stream) {
			size = len(stream) - offset
		}
		frames, err := decoder.Feed(stream[offset : offset+size])
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
		collected = append(collected, frames...)
		offset += size
	}
	return collected
}

func TestDecoderRoundTripAnyPartition(t *testing.T) {
	t.Parallel()

	want := []Frame{
		NewDataOutFrame([]byte("first")),
		NewResizeFrame(81, 24),
		NewDataOutFrame([]byte{0x00, 0xff, 0x1b, 0x00}),
		NewExitFrame(-3),
		NewReplayEndFrame(),
		NewErrorFrame("boom"),
	}
	var stream []byte
	for _, frame := range want {
		stream = AppendFrame(stream, frame)
	}

	for _, chunkSizes := range [][]int{
		{len(stream)}, // everything at once
		{1},           // byte by byte
		{2, 3},        // header-spanning reads
		{7, 1, 13},
	} {
		got := feedAll(t, stream, chunkSizes)
		if len(got) != len(want) {
			t.Fatalf("chunks %v: got %d frames, want %d", chunkSizes, len(got), len(want))
		}
		for i := range want {
			if got[i].Type != want[i].Type || !bytes.Equal(got[i].Payload, want[i].Payload) {
				t.Errorf("chunks %v, frame %d: got {%#x %q}, want {%#x %q}",
					chunkSizes, i, got[i].Type, got[i].Payload, want[i].Type, want[i].Payload)
			}
		}
	}
}

func TestDecoderTwoFramesOneChunk(t *testing.T) {
	t.Parallel()

	stream := AppendFrame(nil, NewDataOutFrame([]byte("aaa")))
	stream = AppendFrame(stream, NewDataOutFrame([]byte("bbb")))

	decoder := &Decoder{}
	frames, err := decoder.Feed(stream)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if string(frames[0].Payload) != "aaa" || string(frames[1].Payload) != "bbb" {
		t.Errorf("payloads: got %q and %q, want aaa and bbb", frames[0].Payload, frames[1].Payload)
	}
}

func TestDecoderHeaderThenBodyByteByByte(t *testing.T) {
	t.Parallel()

	stream := EncodeFrame(NewDataOutFrame([]byte("12345")))
	decoder := &Decoder{}

	frames, err := decoder.Feed(stream[:frameHeaderLength])
	if err != nil {
		t.Fatalf("Feed header: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("header only: got %d frames, want 0", len(frames))
	}

	for i := frameHeaderLength; i < len(stream)-1; i++ {
		frames, err = decoder.Feed(stream[i : i+1])
		if err != nil {
			t.Fatalf("Feed byte %d: %v", i, err)
		}
		if len(frames) != 0 {
			t.Fatalf("byte %d: frame emitted before final byte", i)
		}
	}

	frames, err = decoder.Feed(stream[len(stream)-1:])
	if err != nil {
		t.Fatalf("Feed final byte: %v", err)
	}
	if len(frames) != 1 || string(frames[0].Payload) != "12345" {
		t.Fatalf("final byte: got %v, want one DATA_OUT %q", frames, "12345")
	}
}

func TestDecoderShortPrefixYieldsNothing(t *testing.T) {
	t.Parallel()

	decoder := &Decoder{}
	frames, err := decoder.Feed([]byte{FrameDataOut, 0x00, 0x00})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("short prefix: got %d frames, want 0", len(frames))
	}
	if decoder.Buffered() != 3 {
		t.Errorf("Buffered: got %d, want 3", decoder.Buffered())
	}
}

func TestDecoderOversizeLengthPoisonsStream(t *testing.T) {
	t.Parallel()

	good := EncodeFrame(NewDataOutFrame([]byte("ok")))
	bad := make([]byte, frameHeaderLength)
	bad[0] = FrameDataOut
	binary.BigEndian.PutUint32(bad[1:5], MaxPayload+1)
	trailing := EncodeFrame(NewDataOutFrame([]byte("never")))

	decoder := &Decoder{}
	frames, err := decoder.Feed(append(append(good, bad...), trailing...))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("Feed: got err %v, want ErrFrameTooLarge", err)
	}
	if len(frames) != 1 || string(frames[0].Payload) != "ok" {
		t.Fatalf("frames before poison: got %v, want the single ok frame", frames)
	}

	// The failure is permanent until Reset.
	if _, err := decoder.Feed(EncodeFrame(NewReplayEndFrame())); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("Feed after poison: got %v, want ErrFrameTooLarge", err)
	}

	decoder.Reset()
	frames, err = decoder.Feed(EncodeFrame(NewDataOutFrame([]byte("fresh"))))
	if err != nil || len(frames) != 1 || string(frames[0].Payload) != "fresh" {
		t.Fatalf("after Reset: got %v, %v", frames, err)
	}
}

func TestDecoderMaxPayloadBoundaryAccepted(t *testing.T) {
	t.Parallel()

	header := make([]byte, frameHeaderLength)
	header[0] = FrameDataOut
	binary.BigEndian.PutUint32(header[1:5], MaxPayload)

	decoder := &Decoder{}
	if _, err := decoder.Feed(header); err != nil {
		t.Fatalf("a frame of exactly MaxPayload must be accepted: %v", err)
	}
}

func TestDecoderUnknownOpcodePassesThrough(t *testing.T) {
	t.Parallel()

	unknown := Frame{Type: 0x7f, Payload: []byte("future")}
	stream := AppendFrame(nil, unknown)
	stream = AppendFrame(stream, NewReplayEndFrame())

	decoder := &Decoder{}
	frames, err := decoder.Feed(stream)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2 (unknown consumed, not an error)", len(frames))
	}
	if frames[0].Type != 0x7f || string(frames[0].Payload) != "future" {
		t.Errorf("unknown frame mangled: %#x %q", frames[0].Type, frames[0].Payload)
	}
	if frames[1].Type != FrameReplayEnd {
		t.Errorf("frame after unknown: got %#x, want REPLAY_END", frames[1].Type)
	}
}

func TestDecoderPayloadDoesNotAliasBuffer(t *testing.T) {
	t.Parallel()

	chunk := EncodeFrame(NewDataOutFrame([]byte("stable")))
	decoder := &Decoder{}
	frames, err := decoder.Feed(chunk)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	// Mutating the fed chunk must not affect the yielded payload.
	for i := range chunk {
		chunk[i] = 0
	}
	if string(frames[0].Payload) != "stable" {
		t.Errorf("payload aliases input: got %q", frames[0].Payload)
	}
}

func TestResizePayloadRoundTrip(t *testing.T) {
	t.Parallel()

	frame := NewResizeFrame(203, 51)
	columns, rows, err := ParseResizePayload(frame.Payload)
	if err != nil {
		t.Fatalf("ParseResizePayload: %v", err)
	}
	if columns != 203 || rows != 51 {
		t.Errorf("got %dx%d, want 203x51", columns, rows)
	}

	if _, _, err := ParseResizePayload([]byte{1, 2, 3}); err == nil {
		t.Error("3-byte resize payload: got nil error")
	}
}

func TestExitPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	for _, code := range []int32{0, 1, 42, -1, 255} {
		frame := NewExitFrame(code)
		got, err := ParseExitPayload(frame.Payload)
		if err != nil {
			t.Fatalf("ParseExitPayload(%d): %v", code, err)
		}
		if got != code {
			t.Errorf("exit code: got %d, want %d", got, code)
		}
	}
}

func TestHelloFrameCarriesModeAndVersion(t *testing.T) {
	t.Parallel()

	frame := NewHelloFrame(ModeView)
	if frame.Type != FrameHello {
		t.Fatalf("type: got %#x, want HELLO", frame.Type)
	}
	hello, err := ParseHelloPayload(frame.Payload)
	if err != nil {
		t.Fatalf("ParseHelloPayload: %v", err)
	}
	if hello.Mode != ModeView || hello.ProtocolVersion != ProtocolVersion {
		t.Errorf("got %+v, want view mode at version %d", hello, ProtocolVersion)
	}

	if _, err := ParseHelloPayload([]byte("{not json")); err == nil {
		t.Error("malformed HELLO JSON: got nil error")
	}
}
