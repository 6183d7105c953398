// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/holdpty/holdpty/registry"
)

// runList prints the live sessions, reaping stale registry entries as
// a side effect of enumeration.
func runList(arguments []string) error {
	flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
	if err := flags.Parse(arguments); err != nil {
		return err
	}

	entries, err := registry.List(registry.Dir())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no sessions")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tPID\tCHILD\tSIZE\tSTARTED\tCOMMAND")
	for _, entry := range entries {
		metadata := entry.Metadata
		fmt.Fprintf(writer, "%s\t%d\t%d\t%dx%d\t%s\t%s\n",
			metadata.Name, metadata.PID, metadata.ChildPID,
			metadata.Columns, metadata.Rows,
			metadata.StartedAt.Local().Format(time.Stamp),
			strings.Join(metadata.Command, " "))
	}
	return writer.Flush()
}

// runStop terminates the named session's child. A session that is
// already dead surfaces as "not running" after its stale record is
// reaped.
func runStop(arguments []string) error {
	flags := pflag.NewFlagSet("stop", pflag.ContinueOnError)
	if err := flags.Parse(arguments); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("stop: exactly one session name is required")
	}
	name := flags.Arg(0)
	directory := registry.Dir()

	metadata, err := registry.ReadMetadata(directory, name)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("session %q is not running", name)
		}
		return err
	}

	if err := registry.Stop(metadata); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			// The child was already gone; clean up what it left.
			_, _ = registry.List(directory)
			return fmt.Errorf("session %q is not running", name)
		}
		return err
	}
	return nil
}

// runRemove removes a session's registry entries, for externally
// coordinated cleanup.
func runRemove(arguments []string) error {
	flags := pflag.NewFlagSet("remove", pflag.ContinueOnError)
	if err := flags.Parse(arguments); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("remove: exactly one session name is required")
	}
	return registry.Remove(registry.Dir(), flags.Arg(0))
}
