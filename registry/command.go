// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import "strings"

// windowsNativeExtensions and windowsScriptExtensions order the
// Windows command search. Native images run directly on the PTY
// backend; scripts need the cmd.exe shim because the backend cannot
// run script shims itself.
var (
	windowsNativeExtensions = []string{".exe", ".com"}
	windowsScriptExtensions = []string{".cmd", ".bat"}
)

// resolveWindowsCommand rewrites a command vector for the Windows PTY
// backend, which cannot search PATH or execute .cmd/.bat shims:
//
//   - A command with an explicit .cmd/.bat extension is wrapped in
//     "cmd.exe /c"; any other explicit extension passes through.
//   - An extensionless command is searched across the candidate
//     directories (the literal path when the command contains a
//     separator, otherwise each PATH element) for .exe then .com
//     (returned directly), then .cmd then .bat (wrapped in cmd.exe /c).
//   - If nothing matches, ".exe" is appended and the spawn fails
//     loudly downstream.
//
// pathVariable is the raw PATH value (';'-separated); fileExists is
// injected so the search is unit-testable on any platform.
func resolveWindowsCommand(command []string, pathVariable string, fileExists func(string) bool) []string {
	if len(command) == 0 {
		return command
	}
	executable := command[0]

	if extension := commandExtension(executable); extension != "" {
		if isWindowsScriptExtension(extension) {
			return append([]string{"cmd.exe", "/c"}, command...)
		}
		return command
	}

	var candidates []string
	if strings.ContainsAny(executable, `/\`) {
		candidates = []string{executable}
	} else {
		for _, directory := range strings.Split(pathVariable, ";") {
			if directory == "" {
				continue
			}
			candidates = append(candidates, directory+`\`+executable)
		}
	}

	for _, extension := range windowsNativeExtensions {
		for _, candidate := range candidates {
			if fileExists(candidate + extension) {
				resolved := append([]string{candidate + extension}, command[1:]...)
				return resolved
			}
		}
	}
	for _, extension := range windowsScriptExtensions {
		for _, candidate := range candidates {
			if fileExists(candidate + extension) {
				resolved := append([]string{"cmd.exe", "/c", candidate + extension}, command[1:]...)
				return resolved
			}
		}
	}

	fallback := append([]string{executable + ".exe"}, command[1:]...)
	return fallback
}

// commandExtension returns the lowercase extension of the final path
// element, or "" if there is none. A dot inside a directory component
// does not count.
func commandExtension(token string) string {
	base := commandBasename(token)
	index := strings.LastIndexByte(base, '.')
	if index <= 0 {
		return ""
	}
	return strings.ToLower(base[index:])
}

// isWindowsScriptExtension reports whether the extension needs the
// cmd.exe shim.
func isWindowsScriptExtension(extension string) bool {
	for _, script := range windowsScriptExtensions {
		if extension == script {
			return true
		}
	}
	return false
}
