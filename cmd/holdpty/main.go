// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

// holdpty holds a pseudo-terminal open for a spawned command so that
// other invocations can attach interactively, view read-only, or dump
// recent output later.
//
// Usage:
//
//	holdpty start [--name N] [--cols C] [--rows R] [--cwd DIR] [--detach] -- command [args...]
//	holdpty attach NAME
//	holdpty view NAME
//	holdpty logs NAME
//	holdpty list
//	holdpty stop NAME
//	holdpty remove NAME
//	holdpty wait NAME
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/holdpty/holdpty/lib/process"
	"github.com/holdpty/holdpty/lib/version"
)

const usage = `holdpty - hold a PTY open for a command

USAGE
    holdpty start [--name N] [--cols C] [--rows R] [--cwd DIR] [--detach] -- command [args...]
    holdpty attach NAME     interactive attach (exclusive writer)
    holdpty view NAME       read-only live view
    holdpty logs NAME       dump recent output and exit
    holdpty list            list live sessions
    holdpty stop NAME       terminate a session's child
    holdpty remove NAME     remove a session's registry entries
    holdpty wait NAME       wait for a session to exit

Sessions live in the directory given by HOLDPTY_DIR (or a per-user
default). HOLDPTY_LINGER_MS controls how long a finished session's
endpoint stays open for late log collectors.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	var err error
	switch os.Args[1] {
	case "start":
		err = runStart(os.Args[2:], logger)
	case "__holder":
		// Hidden re-exec target for --detach: the actual holder
		// process, with a JSON logger since nothing interactive is
		// watching.
		err = runHolder(os.Args[2:])
	case "attach":
		err = runClient(os.Args[2:], "attach", logger)
	case "view":
		err = runClient(os.Args[2:], "view", logger)
	case "logs":
		err = runClient(os.Args[2:], "logs", logger)
	case "list":
		err = runList(os.Args[2:])
	case "stop":
		err = runStop(os.Args[2:])
	case "remove":
		err = runRemove(os.Args[2:])
	case "wait":
		err = runWait(os.Args[2:], logger)
	case "--version", "version":
		fmt.Printf("holdpty %s\n", version.Info())
	case "--help", "help", "-h":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "holdpty: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		process.Fatal(err)
	}
}
