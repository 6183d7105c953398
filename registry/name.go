// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// namePattern is the set of valid session names. Names become file
// names and pipe names, so the alphabet is deliberately narrow.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// scriptExtensions are executable-script suffixes stripped when
// deriving a session name from a command.
var scriptExtensions = []string{".exe", ".cmd", ".bat", ".sh", ".ps1"}

// ValidateName checks that name matches [A-Za-z0-9_-]{1,64}.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid session name %q: must match [A-Za-z0-9_-]{1,64}", name)
	}
	return nil
}

// GenerateName derives a session name from a command vector: the
// basename of the first token, with any executable-script extension
// stripped case-insensitively, restricted to the name alphabet,
// truncated to 16 characters, with a random four-hex-digit suffix for
// uniqueness. An empty derivation falls back to "session".
func GenerateName(command []string) (string, error) {
	base := ""
	if len(command) > 0 {
		base = commandBasename(command[0])
	}

	lower := strings.ToLower(base)
	for _, extension := range scriptExtensions {
		if strings.HasSuffix(lower, extension) {
			base = base[:len(base)-len(extension)]
			break
		}
	}

	var builder strings.Builder
	for _, r := range base {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			builder.WriteRune(r)
		}
	}
	stem := builder.String()
	if len(stem) > 16 {
		stem = stem[:16]
	}
	if stem == "" {
		stem = "session"
	}

	var suffix [2]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", fmt.Errorf("generating session name suffix: %w", err)
	}
	return stem + "-" + hex.EncodeToString(suffix[:]), nil
}

// commandBasename returns the final path element of a command token,
// recognizing both separator conventions so Windows paths name
// sensibly even when the caller runs elsewhere.
func commandBasename(token string) string {
	if index := strings.LastIndexAny(token, `/\`); index >= 0 {
		return token[index+1:]
	}
	return token
}
