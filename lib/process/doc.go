// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for holdpty
// commands: fatal error reporting to stderr before the structured
// logger exists, and exit-code extraction from a finished child.
package process
