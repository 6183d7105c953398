// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"encoding/hex"
	"path/filepath"
	"runtime"

	"github.com/zeebo/blake3"
)

// MetadataPath returns the metadata file path for a session:
// {dir}/{name}.json.
func MetadataPath(directory, name string) string {
	return filepath.Join(directory, name+".json")
}

// EndpointPath returns the platform endpoint address for a session: a
// filesystem socket path on POSIX, a named pipe name on Windows.
func EndpointPath(directory, name string) string {
	if runtime.GOOS == "windows" {
		return pipeName(directory, name)
	}
	return filepath.Join(directory, name+".sock")
}

// pipeName builds the Windows named pipe name. Pipe names are
// process-wide global, so the name embeds a short fingerprint of the
// absolute session directory: two environments pointing at different
// directories must not collide on the pipe namespace.
func pipeName(directory, name string) string {
	absolute, err := filepath.Abs(directory)
	if err != nil {
		absolute = directory
	}
	digest := blake3.Sum256([]byte(absolute))
	return `\\.\pipe\holdpty-` + hex.EncodeToString(digest[:4]) + "-" + name
}
