// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package holder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/holdpty/holdpty/lib/clock"
	"github.com/holdpty/holdpty/lib/config"
	"github.com/holdpty/holdpty/registry"
)

// ptyReadBufferSize is the chunk size for PTY output reads. 32 KB
// comfortably covers a full screen repaint in one read.
const ptyReadBufferSize = 32 * 1024

// Options configures Start. Command is required; everything else has a
// sensible default.
type Options struct {
	// Name is the session name. Empty means derive one from the
	// command (registry.GenerateName).
	Name string

	// Command is the command vector to spawn on the PTY.
	Command []string

	// Columns and Rows are the initial PTY size. Zero values use the
	// configured defaults (120x40 unless overridden).
	Columns uint16
	Rows    uint16

	// Dir overrides the session directory. Empty means registry.Dir().
	Dir string

	// WorkingDir is the child's working directory. Empty inherits the
	// holder's.
	WorkingDir string

	// Env is the child's full environment. Nil inherits the holder's
	// environment. TERM is added when absent so curses programs
	// behave.
	Env []string

	// RingCapacity is the history ring size in bytes. Zero uses the
	// configured default (1 MiB unless overridden).
	RingCapacity int

	// Linger is how long the endpoint stays open after the child
	// exits. Zero reads HOLDPTY_LINGER_MS (default 5 s).
	Linger time.Duration

	// Clock injects time for the drain and linger intervals. Nil uses
	// the real clock.
	Clock clock.Clock

	// Logger receives structured holder events. Nil uses
	// slog.Default().
	Logger *slog.Logger
}

// Holder is one live session: a child process on a PTY, a history
// ring, a listening endpoint, and the set of connected clients. Create
// one with Start; it owns every resource it opens and releases them
// all during the shutdown sequence.
type Holder struct {
	name      string
	directory string
	command   []string
	logger    *slog.Logger
	clock     clock.Clock
	linger    time.Duration

	pty      ptyProcess
	ring     *Ring
	listener net.Listener

	mu         sync.Mutex
	columns    uint16
	rows       uint16
	clients    map[*client]struct{}
	writer     *client
	localSinks []io.Writer
	exited     bool
	exitCode   int

	exitedCh     chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once
}

// Start spawns the session and returns once the endpoint is listening
// and the metadata record is published, so a caller that sees Start
// return can hand the name to other processes immediately.
//
// Startup order matters: the PTY is spawned first, the endpoint starts
// listening, and only then is metadata written — a reader that finds
// the record can always connect. Spawn or listen failures abort
// startup with no metadata written and no resources left behind.
func Start(options Options) (*Holder, error) {
	if len(options.Command) == 0 {
		return nil, errors.New("holder: command is required")
	}

	defaults, err := config.Load()
	if err != nil {
		return nil, err
	}

	name := options.Name
	if name == "" {
		name, err = registry.GenerateName(options.Command)
		if err != nil {
			return nil, err
		}
	}
	if err := registry.ValidateName(name); err != nil {
		return nil, err
	}

	directory := options.Dir
	if directory == "" {
		directory = registry.Dir()
	}
	if err := registry.EnsureDir(directory); err != nil {
		return nil, err
	}

	columns := options.Columns
	if columns == 0 {
		columns = defaults.Columns
	}
	rows := options.Rows
	if rows == 0 {
		rows = defaults.Rows
	}
	ringCapacity := options.RingCapacity
	if ringCapacity == 0 {
		ringCapacity = defaults.RingCapacity
	}
	if ringCapacity > MaxPayload {
		// Replay is sent as a single DATA_OUT frame, so the ring must
		// fit in one payload.
		return nil, fmt.Errorf("ring capacity %d exceeds the %d byte frame payload limit", ringCapacity, MaxPayload)
	}
	ring, err := NewRing(ringCapacity)
	if err != nil {
		return nil, err
	}

	linger := options.Linger
	if linger == 0 {
		linger = config.Linger()
	}
	holderClock := options.Clock
	if holderClock == nil {
		holderClock = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", name)

	// Clear any endpoint leftover from a crashed holder of the same
	// name before the child exists.
	_ = registry.RemoveEndpoint(directory, name)

	environment := options.Env
	if environment == nil {
		environment = os.Environ()
	}
	environment = ensureTerm(environment)

	command := registry.ResolveCommand(options.Command)
	pty, err := startPTY(command, columns, rows, options.WorkingDir, environment)
	if err != nil {
		return nil, err
	}

	listener, err := registry.ListenEndpoint(directory, name)
	if err != nil {
		_ = pty.Terminate()
		pty.Close()
		return nil, err
	}

	holder := &Holder{
		name:      name,
		directory: directory,
		command:   options.Command,
		logger:    logger,
		clock:     holderClock,
		linger:    linger,
		pty:       pty,
		ring:      ring,
		listener:  listener,
		columns:   columns,
		rows:      rows,
		clients:   make(map[*client]struct{}),
		exitedCh:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	metadata := registry.Metadata{
		Name:      name,
		PID:       os.Getpid(),
		ChildPID:  pty.Pid(),
		Command:   options.Command,
		Columns:   columns,
		Rows:      rows,
		StartedAt: holderClock.Now(),
	}
	if err := registry.WriteMetadata(directory, metadata); err != nil {
		listener.Close()
		_ = registry.RemoveEndpoint(directory, name)
		_ = pty.Terminate()
		pty.Close()
		return nil, err
	}

	logger.Info("session started",
		"child_pid", pty.Pid(),
		"command", strings.Join(options.Command, " "),
		"cols", columns,
		"rows", rows,
	)

	go holder.readLoop()
	go holder.waitLoop()
	go holder.acceptLoop()

	return holder, nil
}

// Name returns the resolved session name.
func (h *Holder) Name() string { return h.name }

// Directory returns the session directory this holder registered in.
func (h *Holder) Directory() string { return h.directory }

// ChildPID returns the spawned child's process id.
func (h *Holder) ChildPID() int { return h.pty.Pid() }

// Exited is closed once the child's exit code has been latched. Read
// the code with ExitCode.
func (h *Holder) Exited() <-chan struct{} { return h.exitedCh }

// ExitCode returns the child's exit code and whether it has exited.
func (h *Holder) ExitCode() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode, h.exited
}

// Done is closed when the shutdown sequence has completed: clients
// disconnected, endpoint released, metadata removed. Wait-for-exit
// callers block on this latch.
func (h *Holder) Done() <-chan struct{} { return h.done }

// Wait blocks until the child exits and returns its exit code.
func (h *Holder) Wait(ctx context.Context) (int, error) {
	select {
	case <-h.exitedCh:
		code, _ := h.ExitCode()
		return code, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Close asks the child to terminate, which drives the normal
// drain-then-shutdown path. Observe completion via Done. Safe to call
// any number of times, including after the child already exited.
func (h *Holder) Close() error {
	h.mu.Lock()
	exited := h.exited
	h.mu.Unlock()
	if !exited {
		_ = h.pty.Terminate()
	}
	return nil
}

// Resize sets the PTY size and records it for later HELLO_ACKs. The
// foreground path calls it when the controlling terminal changes size;
// the connection path calls it for an attach client's RESIZE frame.
func (h *Holder) Resize(columns, rows uint16) {
	h.mu.Lock()
	h.columns = columns
	h.rows = rows
	h.mu.Unlock()
	if err := h.pty.Resize(columns, rows); err != nil {
		h.logger.Debug("resize failed", "error", err)
	}
}

// Foreground wires local stdio into the session: the ring's current
// contents and all subsequent PTY output are written to output, and
// bytes read from input are fed to the PTY. It is a convenience bound
// to this holder instance and changes none of the protocol semantics;
// raw-mode handling and size-change forwarding are the caller's job.
//
// Foreground returns immediately; copying stops when the session shuts
// down or input is exhausted.
func (h *Holder) Foreground(input io.Reader, output io.Writer) {
	h.mu.Lock()
	snapshot := h.ring.Snapshot()
	if len(snapshot) > 0 {
		_, _ = output.Write(snapshot)
	}
	h.localSinks = append(h.localSinks, output)
	h.mu.Unlock()

	go func() {
		buffer := make([]byte, 4096)
		for {
			n, err := input.Read(buffer)
			if n > 0 {
				if _, writeErr := h.pty.Write(buffer[:n]); writeErr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
}

// readLoop pumps PTY output into the ring and out to every connected
// client. The ring write and the broadcast happen under one lock so a
// handshake snapshot can never miss a chunk or receive it twice.
func (h *Holder) readLoop() {
	buffer := make([]byte, ptyReadBufferSize)
	for {
		n, err := h.pty.Read(buffer)
		if n > 0 {
			h.broadcast(buffer[:n])
		}
		if err != nil {
			// EIO is the normal signal that the child exited and the
			// slave side closed; the wait loop takes it from here.
			return
		}
	}
}

// broadcast appends a PTY output chunk to the ring and fans it out to
// attach and view clients and local sinks. Pre-handshake clients are
// skipped; logs clients have already been half-closed.
func (h *Holder) broadcast(chunk []byte) {
	encoded := EncodeFrame(NewDataOutFrame(chunk))

	h.mu.Lock()
	defer h.mu.Unlock()

	h.ring.Write(chunk)
	for connected := range h.clients {
		if connected.mode == ModeAttach || connected.mode == ModeView {
			h.enqueueLocked(connected, encoded)
		}
	}
	for _, sink := range h.localSinks {
		// Local sink errors are swallowed like broadcast errors.
		_, _ = sink.Write(chunk)
	}
}

// waitLoop latches the child's exit code, waits out the drain interval
// so trailing PTY output reaches the ring, then runs shutdown.
func (h *Holder) waitLoop() {
	code := h.pty.Wait()

	h.mu.Lock()
	h.exited = true
	h.exitCode = code
	h.mu.Unlock()
	close(h.exitedCh)

	h.logger.Info("child exited", "code", code)

	h.clock.Sleep(drainInterval)
	h.shutdown()
}

// acceptLoop accepts client connections until the listener closes
// during shutdown.
func (h *Holder) acceptLoop() {
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			h.logger.Error("accept failed", "error", err)
			continue
		}

		connected := newClient(conn)
		h.mu.Lock()
		if h.clients == nil {
			// Shutdown already cleared the client set; the listener
			// close races with this accept.
			h.mu.Unlock()
			conn.Close()
			continue
		}
		h.clients[connected] = struct{}{}
		h.mu.Unlock()

		go h.clientWriter(connected)
		go h.handleConnection(connected)
	}
}

// shutdown runs the teardown sequence exactly once:
//
//  1. Broadcast EXIT to attach/view clients and half-close everyone.
//  2. Linger, letting buffered writes complete and late logs clients
//     collect their dump.
//  3. Force-destroy remaining connections and clear the client set.
//  4. Remove the metadata record (before the endpoint is released, so
//     a record on disk always names a live endpoint).
//  5. Close the listener and remove the endpoint file.
//  6. Signal the shutdown-complete latch.
func (h *Holder) shutdown() {
	h.shutdownOnce.Do(func() {
		code, _ := h.ExitCode()
		exitFrame := EncodeFrame(NewExitFrame(int32(code)))

		h.mu.Lock()
		for connected := range h.clients {
			if connected.mode == ModeAttach || connected.mode == ModeView {
				h.enqueueLocked(connected, exitFrame)
			}
			h.closeSendLocked(connected)
		}
		h.mu.Unlock()

		h.clock.Sleep(h.linger)

		h.mu.Lock()
		remaining := h.clients
		h.clients = nil
		h.writer = nil
		h.mu.Unlock()
		for connected := range remaining {
			connected.conn.Close()
		}

		if err := registry.RemoveMetadata(h.directory, h.name); err != nil {
			h.logger.Debug("metadata removal failed", "error", err)
		}
		h.listener.Close()
		if err := registry.RemoveEndpoint(h.directory, h.name); err != nil {
			h.logger.Debug("endpoint removal failed", "error", err)
		}
		h.pty.Close()

		h.logger.Info("session closed")
		close(h.done)
	})
}

// ensureTerm adds a TERM entry when the environment lacks one, so
// curses children render sensibly on the PTY.
func ensureTerm(environment []string) []string {
	for _, pair := range environment {
		if strings.HasPrefix(pair, "TERM=") {
			return environment
		}
	}
	return append(environment, "TERM=xterm-256color")
}

// activeAttachmentMessage is the canonical exclusivity error, phrased
// so front-ends can suggest the read-only alternative.
func (h *Holder) activeAttachmentMessage() string {
	return fmt.Sprintf("Session `%s` has an active attachment. Use view for read-only access.", h.name)
}
