// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import "os"

// ResolveCommand rewrites the command vector for the Windows PTY
// backend (see resolveWindowsCommand).
func ResolveCommand(command []string) []string {
	return resolveWindowsCommand(command, os.Getenv("PATH"), func(path string) bool {
		info, err := os.Stat(path)
		return err == nil && !info.IsDir()
	})
}
