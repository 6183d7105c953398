// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/holdpty/holdpty/holder"
	"github.com/holdpty/holdpty/registry"
)

// runStart starts a session. By default the command runs in the
// foreground with local stdio piped through the holder; --detach
// re-execs holdpty as a background holder process and prints the
// session name.
func runStart(arguments []string, logger *slog.Logger) error {
	flags := pflag.NewFlagSet("start", pflag.ContinueOnError)
	name := flags.String("name", "", "session name (derived from the command when empty)")
	columns := flags.Uint16("cols", 0, "initial PTY columns")
	rows := flags.Uint16("rows", 0, "initial PTY rows")
	workingDir := flags.String("cwd", "", "child working directory")
	detach := flags.Bool("detach", false, "run the holder in the background and print the session name")
	if err := flags.Parse(arguments); err != nil {
		return err
	}
	command := flags.Args()
	if len(command) == 0 {
		return errors.New("start: command is required after flags (use --)")
	}

	if *detach {
		return startDetached(*name, *columns, *rows, *workingDir, command)
	}

	options := holder.Options{
		Name:       *name,
		Command:    command,
		Columns:    *columns,
		Rows:       *rows,
		WorkingDir: *workingDir,
		Logger:     logger,
	}

	// Match the controlling terminal's size unless overridden.
	if options.Columns == 0 && options.Rows == 0 && term.IsTerminal(int(os.Stdout.Fd())) {
		if width, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			options.Columns = uint16(width)
			options.Rows = uint16(height)
		}
	}

	session, err := holder.Start(options)
	if err != nil {
		return err
	}

	restore, rawErr := enterRawMode()
	if rawErr != nil {
		restore = func() {}
	}
	defer restore()
	session.Foreground(os.Stdin, os.Stdout)
	watchResize(session)

	<-session.Done()
	if code, exited := session.ExitCode(); exited && code != 0 {
		// Undo raw mode before exiting: os.Exit skips defers.
		restore()
		os.Exit(code)
	}
	return nil
}

// startDetached re-execs this binary as a hidden holder process,
// waits for its metadata record to appear, and prints the session
// name. The child is fully detached from this terminal.
func startDetached(name string, columns, rows uint16, workingDir string, command []string) error {
	if name == "" {
		generated, err := registry.GenerateName(command)
		if err != nil {
			return err
		}
		name = generated
	}
	if err := registry.ValidateName(name); err != nil {
		return err
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving holdpty binary: %w", err)
	}

	arguments := []string{"__holder", "--name", name}
	if columns > 0 {
		arguments = append(arguments, "--cols", fmt.Sprint(columns))
	}
	if rows > 0 {
		arguments = append(arguments, "--rows", fmt.Sprint(rows))
	}
	if workingDir != "" {
		arguments = append(arguments, "--cwd", workingDir)
	}
	arguments = append(arguments, "--")
	arguments = append(arguments, command...)

	cmd := exec.Command(self, arguments...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	detachSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting background holder: %w", err)
	}
	// The holder process outlives us; release it.
	_ = cmd.Process.Release()

	directory := registry.Dir()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := registry.ReadMetadata(directory, name); err == nil {
			fmt.Println(name)
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("background holder for %q did not publish metadata in time", name)
}

// runHolder is the hidden __holder re-exec target: start the session
// and hold it until shutdown completes.
func runHolder(arguments []string) error {
	flags := pflag.NewFlagSet("__holder", pflag.ContinueOnError)
	name := flags.String("name", "", "session name")
	columns := flags.Uint16("cols", 0, "initial PTY columns")
	rows := flags.Uint16("rows", 0, "initial PTY rows")
	workingDir := flags.String("cwd", "", "child working directory")
	if err := flags.Parse(arguments); err != nil {
		return err
	}
	command := flags.Args()
	if len(command) == 0 {
		return errors.New("__holder: command is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	session, err := holder.Start(holder.Options{
		Name:       *name,
		Command:    command,
		Columns:    *columns,
		Rows:       *rows,
		WorkingDir: *workingDir,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	<-session.Done()
	return nil
}

// runWait blocks until the named session's child exits, then exits
// with the child's code.
func runWait(arguments []string, logger *slog.Logger) error {
	flags := pflag.NewFlagSet("wait", pflag.ContinueOnError)
	if err := flags.Parse(arguments); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("wait: exactly one session name is required")
	}
	name := flags.Arg(0)

	peer, err := holder.ConnectPeer("", name, holder.ModeView, logger)
	if err != nil {
		return describeConnectError(name, err)
	}
	defer peer.Close()

	if _, err := peer.ReadReplay(); err != nil {
		return err
	}
	for frame := range peer.Frames() {
		if frame.Type == holder.FrameExit {
			code, err := holder.ParseExitPayload(frame.Payload)
			if err != nil {
				return err
			}
			if code != 0 {
				os.Exit(int(code))
			}
			return nil
		}
	}
	return errors.New("session ended without reporting an exit code")
}

// describeConnectError maps a peer connect failure to the user-facing
// not-running message, reaping stale registry state along the way.
func describeConnectError(name string, err error) error {
	if errors.Is(err, registry.ErrNotFound) {
		return fmt.Errorf("session %q is not running", name)
	}
	// Metadata existed but the endpoint did not answer: the holder is
	// gone. Enumeration reaps the stale record.
	_, _ = registry.List(registry.Dir())
	return fmt.Errorf("session %q is not running (%v)", name, err)
}
