// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// ProbeTimeout bounds the endpoint dial used to decide final liveness
// of a session whose holder pid looks dead.
const ProbeTimeout = 100 * time.Millisecond

// probeConcurrency bounds parallel endpoint probes during enumeration
// so a directory full of stale records does not open dozens of dials
// at once.
const probeConcurrency = 8

// reapLockName is the file lock serializing stale-record removal. Any
// process may enumerate concurrently; only one reaps at a time.
const reapLockName = ".reap.lock"

// Entry is one live session as seen by an enumeration.
type Entry struct {
	// Metadata is the session record as read from disk.
	Metadata Metadata

	// EndpointReachable reports whether a probe dial within
	// ProbeTimeout succeeded during this enumeration.
	EndpointReachable bool
}

// List enumerates the session directory and returns the live sessions
// sorted by name. Stale records — holder pid dead and endpoint
// unreachable within ProbeTimeout — are removed as a side effect.
//
// Records that fail to parse are skipped but never removed: a parse
// failure can be a transient partial write by a holder on another
// filesystem that lacks atomic rename.
func List(directory string) ([]Entry, error) {
	paths, err := filepath.Glob(filepath.Join(directory, "*.json"))
	if err != nil {
		return nil, err
	}

	type probed struct {
		metadata  Metadata
		alive     bool
		reachable bool
	}

	results := make([]probed, 0, len(paths))
	var resultsMutex sync.Mutex
	var waitGroup sync.WaitGroup
	semaphore := make(chan struct{}, probeConcurrency)

	for _, path := range paths {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			continue
		}
		var metadata Metadata
		if parseErr := json.Unmarshal(data, &metadata); parseErr != nil {
			continue
		}
		if metadata.Name == "" || filepath.Base(path) != metadata.Name+".json" {
			// A record whose name does not match its file name is not
			// ours to interpret; leave it alone.
			continue
		}

		waitGroup.Add(1)
		semaphore <- struct{}{}
		go func(metadata Metadata) {
			defer waitGroup.Done()
			defer func() { <-semaphore }()
			result := probed{
				metadata:  metadata,
				alive:     processAlive(metadata.PID),
				reachable: probeEndpoint(directory, metadata.Name),
			}
			resultsMutex.Lock()
			results = append(results, result)
			resultsMutex.Unlock()
		}(metadata)
	}
	waitGroup.Wait()

	var live []Entry
	var stale []Metadata
	for _, result := range results {
		// A live holder pid means live; otherwise the endpoint probe
		// decides. Removal is only considered when both fail — pid
		// existence alone is not trustworthy (Windows reuses pids
		// aggressively), so the probe is always consulted before
		// cleanup.
		if result.alive || result.reachable {
			live = append(live, Entry{
				Metadata:          result.metadata,
				EndpointReachable: result.reachable,
			})
		} else {
			stale = append(stale, result.metadata)
		}
	}

	if len(stale) > 0 {
		reapStale(directory, stale)
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].Metadata.Name < live[j].Metadata.Name
	})
	return live, nil
}

// reapStale removes stale records under the directory's reap lock so
// concurrent enumerators do not both unlink (and so a holder starting
// up under the same name races with at most one reaper). Failure to
// acquire the lock skips reaping: the next enumeration will retry.
func reapStale(directory string, stale []Metadata) {
	lock := flock.New(filepath.Join(directory, reapLockName))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		return
	}
	defer lock.Unlock()

	for _, metadata := range stale {
		// Re-probe under the lock: the session may have restarted
		// between the scan and the reap.
		if probeEndpoint(directory, metadata.Name) {
			continue
		}
		_ = RemoveMetadata(directory, metadata.Name)
		_ = RemoveEndpoint(directory, metadata.Name)
	}
}

// Remove deletes a session's metadata and endpoint, for externally
// coordinated cleanup.
func Remove(directory, name string) error {
	if err := RemoveMetadata(directory, name); err != nil {
		return err
	}
	return RemoveEndpoint(directory, name)
}

// probeEndpoint reports whether the session's endpoint accepts a
// connection within ProbeTimeout.
func probeEndpoint(directory, name string) bool {
	conn, err := DialEndpoint(directory, name, ProbeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
