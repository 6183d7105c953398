// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package holder

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/holdpty/holdpty/lib/process"
)

// drainInterval is how long the holder keeps reading after the child
// exits, letting the PTY flush trailing output before shutdown begins.
const drainInterval = 100 * time.Millisecond

// startPTY spawns command on a new pseudo-terminal with the requested
// size.
func startPTY(command []string, columns, rows uint16, workingDir string, env []string) (ptyProcess, error) {
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = workingDir
	cmd.Env = env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: columns, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("spawning %q on pty: %w", command[0], err)
	}
	return &unixPTY{file: ptmx, cmd: cmd}, nil
}

// unixPTY wraps a creack/pty master and its child process.
type unixPTY struct {
	file *os.File
	cmd  *exec.Cmd
}

func (p *unixPTY) Read(buffer []byte) (int, error)  { return p.file.Read(buffer) }
func (p *unixPTY) Write(buffer []byte) (int, error) { return p.file.Write(buffer) }
func (p *unixPTY) Close() error                     { return p.file.Close() }

func (p *unixPTY) Resize(columns, rows uint16) error {
	return pty.Setsize(p.file, &pty.Winsize{Cols: columns, Rows: rows})
}

func (p *unixPTY) Pid() int { return p.cmd.Process.Pid }

func (p *unixPTY) Wait() int { return process.ExitCode(p.cmd.Wait()) }

func (p *unixPTY) Terminate() error {
	return p.cmd.Process.Signal(unix.SIGTERM)
}
