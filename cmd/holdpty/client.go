// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/holdpty/holdpty/holder"
)

// runClient implements attach, view, and logs: connect as a peer in
// the requested mode, print the replay, then (except for logs) follow
// the live stream until the session exits.
func runClient(arguments []string, mode string, logger *slog.Logger) error {
	flags := pflag.NewFlagSet(mode, pflag.ContinueOnError)
	if err := flags.Parse(arguments); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New(mode + ": exactly one session name is required")
	}
	name := flags.Arg(0)

	peer, err := holder.ConnectPeer("", name, holder.Mode(mode), logger)
	if err != nil {
		var remote *holder.RemoteError
		if errors.As(err, &remote) {
			return errors.New(remote.Message)
		}
		return describeConnectError(name, err)
	}
	defer peer.Close()

	replay, err := peer.ReadReplay()
	if err != nil {
		return err
	}
	if len(replay) > 0 {
		os.Stdout.Write(replay)
	}

	if holder.Mode(mode) == holder.ModeLogs {
		// Replay-only: the holder half-closes after REPLAY_END.
		return nil
	}

	restore := func() {}
	if holder.Mode(mode) == holder.ModeAttach {
		if enterRestore, rawErr := enterRawMode(); rawErr == nil {
			restore = enterRestore
			defer restore()
		}
		// Tell the holder our actual terminal size, then keep it
		// posted on changes.
		if width, height, sizeErr := term.GetSize(int(os.Stdout.Fd())); sizeErr == nil {
			_ = peer.SendResize(uint16(width), uint16(height))
		}
		watchPeerResize(peer)

		go func() {
			buffer := make([]byte, 4096)
			for {
				n, readErr := os.Stdin.Read(buffer)
				if n > 0 {
					if sendErr := peer.SendInput(buffer[:n]); sendErr != nil {
						return
					}
				}
				if readErr != nil {
					return
				}
			}
		}()
	}

	for frame := range peer.Frames() {
		switch frame.Type {
		case holder.FrameDataOut:
			os.Stdout.Write(frame.Payload)
		case holder.FrameExit:
			code, parseErr := holder.ParseExitPayload(frame.Payload)
			if parseErr != nil {
				return parseErr
			}
			if code != 0 {
				// Undo raw mode before exiting: os.Exit skips defers.
				restore()
				os.Exit(int(code))
			}
			return nil
		case holder.FrameError:
			return errors.New(string(frame.Payload))
		}
	}
	return peer.Err()
}
