// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrNotFound is returned when a session's metadata record does not
// exist.
var ErrNotFound = errors.New("session not found")

// Metadata is the per-session record stored at {dir}/{name}.json.
// Readers must tolerate extra fields from newer writers, which
// encoding/json does by default.
type Metadata struct {
	// Name is the session name.
	Name string `json:"name"`

	// PID is the holder process id; ChildPID is the spawned child.
	PID      int `json:"pid"`
	ChildPID int `json:"childPid"`

	// Command is the command vector the holder spawned.
	Command []string `json:"command"`

	// Columns and Rows are the initial PTY size.
	Columns uint16 `json:"cols"`
	Rows    uint16 `json:"rows"`

	// StartedAt is when the holder started, RFC 3339 on the wire.
	StartedAt time.Time `json:"startedAt"`
}

// WriteMetadata writes the session record. The holder calls this
// exactly once, after its endpoint is listening. The record is written
// to a temporary file and renamed into place so enumerating readers
// never observe a partial record from this writer.
func WriteMetadata(directory string, metadata Metadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %s: %w", metadata.Name, err)
	}

	path := MetadataPath(directory, metadata.Name)
	temporary, err := os.CreateTemp(directory, "."+metadata.Name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating metadata temp file: %w", err)
	}
	temporaryPath := temporary.Name()

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing metadata for %s: %w", metadata.Name, err)
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing metadata temp file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("publishing metadata for %s: %w", metadata.Name, err)
	}
	return nil
}

// ReadMetadata reads the session record for name. Returns ErrNotFound
// if no record exists.
func ReadMetadata(directory, name string) (Metadata, error) {
	data, err := os.ReadFile(MetadataPath(directory, name))
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, fmt.Errorf("session %q: %w", name, ErrNotFound)
		}
		return Metadata{}, fmt.Errorf("reading metadata for %s: %w", name, err)
	}

	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("parsing metadata for %s: %w", name, err)
	}
	return metadata, nil
}

// RemoveMetadata deletes the session record. Missing records are not
// an error: shutdown and stale-reaping race benignly.
func RemoveMetadata(directory, name string) error {
	if err := os.Remove(MetadataPath(directory, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing metadata for %s: %w", name, err)
	}
	return nil
}
