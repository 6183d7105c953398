// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the holdpty
// binary.
//
// Version information is injected at build time via -ldflags, for example:
//
//	go build -ldflags "-X github.com/holdpty/holdpty/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return fmt.Sprintf("%s (%s, %s/%s)", Version, GitCommit, runtime.GOOS, runtime.GOARCH)
}
