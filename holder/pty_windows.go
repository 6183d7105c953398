// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package holder

import (
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// drainInterval is how long the holder keeps reading after the child
// exits. Longer than POSIX: ConPTY is known to report child exit
// before all output has surfaced on the output pipe.
const drainInterval = 200 * time.Millisecond

// startPTY spawns command on a ConPTY pseudo-console with the
// requested size. The caller has already run the command through
// registry.ResolveCommand, so command[0] is a concrete image path (or
// cmd.exe for script shims).
func startPTY(command []string, columns, rows uint16, workingDir string, env []string) (ptyProcess, error) {
	inputRead, inputWrite, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating conpty input pipe: %w", err)
	}
	outputRead, outputWrite, err := os.Pipe()
	if err != nil {
		inputRead.Close()
		inputWrite.Close()
		return nil, fmt.Errorf("creating conpty output pipe: %w", err)
	}

	size := windows.Coord{X: int16(columns), Y: int16(rows)}
	var console windows.Handle
	err = windows.CreatePseudoConsole(size,
		windows.Handle(inputRead.Fd()), windows.Handle(outputWrite.Fd()), 0, &console)
	if err != nil {
		inputRead.Close()
		inputWrite.Close()
		outputRead.Close()
		outputWrite.Close()
		return nil, fmt.Errorf("creating pseudo console: %w", err)
	}
	// The console holds its own references to the child-facing pipe
	// ends; release ours so EOF propagates when the console closes.
	inputRead.Close()
	outputWrite.Close()

	cleanup := func() {
		windows.ClosePseudoConsole(console)
		inputWrite.Close()
		outputRead.Close()
	}

	attributes, err := windows.NewProcThreadAttributeList(1)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("allocating attribute list: %w", err)
	}
	defer attributes.Delete()

	err = attributes.Update(windows.PROC_THREAD_ATTRIBUTE_PSEUDOCONSOLE,
		unsafe.Pointer(console), unsafe.Sizeof(console))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("attaching pseudo console attribute: %w", err)
	}

	commandLine, err := windows.UTF16PtrFromString(windows.ComposeCommandLine(command))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("encoding command line: %w", err)
	}

	var directoryPtr *uint16
	if workingDir != "" {
		directoryPtr, err = windows.UTF16PtrFromString(workingDir)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("encoding working directory: %w", err)
		}
	}

	environmentBlock, err := environBlock(env)
	if err != nil {
		cleanup()
		return nil, err
	}

	startupInfo := &windows.StartupInfoEx{
		ProcThreadAttributeList: attributes.List(),
	}
	startupInfo.Cb = uint32(unsafe.Sizeof(*startupInfo))

	var processInfo windows.ProcessInformation
	err = windows.CreateProcess(nil, commandLine, nil, nil, false,
		windows.EXTENDED_STARTUPINFO_PRESENT|windows.CREATE_UNICODE_ENVIRONMENT,
		environmentBlock, directoryPtr, &startupInfo.StartupInfo, &processInfo)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("spawning %q on conpty: %w", command[0], err)
	}
	windows.CloseHandle(processInfo.Thread)

	return &windowsPTY{
		console:    console,
		inputWrite: inputWrite,
		outputRead: outputRead,
		process:    processInfo.Process,
		pid:        int(processInfo.ProcessId),
	}, nil
}

// windowsPTY wraps a ConPTY pseudo-console and its child process.
type windowsPTY struct {
	console    windows.Handle
	inputWrite *os.File
	outputRead *os.File
	process    windows.Handle
	pid        int
}

func (p *windowsPTY) Read(buffer []byte) (int, error)  { return p.outputRead.Read(buffer) }
func (p *windowsPTY) Write(buffer []byte) (int, error) { return p.inputWrite.Write(buffer) }

func (p *windowsPTY) Resize(columns, rows uint16) error {
	size := windows.Coord{X: int16(columns), Y: int16(rows)}
	if err := windows.ResizePseudoConsole(p.console, size); err != nil {
		return fmt.Errorf("resizing pseudo console: %w", err)
	}
	return nil
}

func (p *windowsPTY) Pid() int { return p.pid }

func (p *windowsPTY) Wait() int {
	windows.WaitForSingleObject(p.process, windows.INFINITE)
	var exitCode uint32
	if err := windows.GetExitCodeProcess(p.process, &exitCode); err != nil {
		return 1
	}
	return int(int32(exitCode))
}

func (p *windowsPTY) Terminate() error {
	if err := windows.TerminateProcess(p.process, 1); err != nil {
		return fmt.Errorf("terminating child %d: %w", p.pid, err)
	}
	return nil
}

func (p *windowsPTY) Close() error {
	// Closing the console detaches the child-facing pipe ends, which
	// unblocks any pending Read on outputRead with EOF.
	windows.ClosePseudoConsole(p.console)
	p.inputWrite.Close()
	err := p.outputRead.Close()
	windows.CloseHandle(p.process)
	return err
}

// environBlock converts KEY=value pairs into the double-NUL-terminated
// UTF-16 block CreateProcess expects. A nil env inherits the holder's
// environment by passing a nil block.
func environBlock(env []string) (*uint16, error) {
	if env == nil {
		return nil, nil
	}
	var block []uint16
	for _, pair := range env {
		encoded, err := windows.UTF16FromString(pair)
		if err != nil {
			return nil, fmt.Errorf("encoding environment entry %q: %w", pair, err)
		}
		block = append(block, encoded...)
	}
	block = append(block, 0)
	return &block[0], nil
}
