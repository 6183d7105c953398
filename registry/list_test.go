// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"net"
	"os"
	"testing"

	"github.com/holdpty/holdpty/lib/testutil"
)

// deadPID is a pid that does not exist on any reasonable system: the
// default pid_max on Linux is far below it, and tests never race a
// real process at this id.
const deadPID = 1 << 22

// writeStale plants a metadata record whose holder is dead and whose
// endpoint does not answer.
func writeStale(t *testing.T, directory, name string) {
	t.Helper()
	metadata := testMetadata(name)
	metadata.PID = deadPID
	metadata.ChildPID = deadPID
	if err := WriteMetadata(directory, metadata); err != nil {
		t.Fatal(err)
	}
}

func TestListReapsStaleSessions(t *testing.T) {
	t.Parallel()

	directory := testutil.SocketDir(t)
	writeStale(t, directory, "corpse")

	entries, err := List(directory)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("List: got %+v, want no live sessions", entries)
	}
	if _, err := os.Stat(MetadataPath(directory, "corpse")); !os.IsNotExist(err) {
		t.Error("stale metadata was not reaped")
	}
}

func TestListKeepsSessionWithLivePid(t *testing.T) {
	t.Parallel()

	directory := testutil.SocketDir(t)
	metadata := testMetadata("alive")
	metadata.PID = os.Getpid() // this test process stands in for the holder
	if err := WriteMetadata(directory, metadata); err != nil {
		t.Fatal(err)
	}

	entries, err := List(directory)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Metadata.Name != "alive" {
		t.Fatalf("List: got %+v, want the alive session", entries)
	}
	// No endpoint is listening, and that must be reported truthfully.
	if entries[0].EndpointReachable {
		t.Error("EndpointReachable: got true with no listener")
	}
}

func TestListKeepsSessionWithReachableEndpoint(t *testing.T) {
	t.Parallel()

	directory := testutil.SocketDir(t)
	writeStale(t, directory, "zombie")

	// A listening endpoint outvotes the dead pid: pid-existence alone
	// is not sufficient evidence either way.
	listener, err := net.Listen("unix", EndpointPath(directory, "zombie"))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	entries, err := List(directory)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || !entries[0].EndpointReachable {
		t.Fatalf("List: got %+v, want the zombie kept via its endpoint", entries)
	}
}

func TestListSkipsButNeverReapsUnparseableRecords(t *testing.T) {
	t.Parallel()

	directory := testutil.SocketDir(t)
	partial := MetadataPath(directory, "partial")
	if err := os.WriteFile(partial, []byte(`{"name":"partial","pid":`), 0o600); err != nil {
		t.Fatal(err)
	}

	entries, err := List(directory)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("List: got %+v, want nothing", entries)
	}
	// A parse failure can be a transient partial write; the record
	// must survive enumeration.
	if _, err := os.Stat(partial); err != nil {
		t.Errorf("unparseable record was removed: %v", err)
	}
}

func TestListSortsByName(t *testing.T) {
	t.Parallel()

	directory := testutil.SocketDir(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		metadata := testMetadata(name)
		metadata.PID = os.Getpid()
		if err := WriteMetadata(directory, metadata); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := List(directory)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List: got %d entries, want 3", len(entries))
	}
	for i, want := range []string{"alpha", "mid", "zeta"} {
		if entries[i].Metadata.Name != want {
			t.Errorf("entry %d: got %q, want %q", i, entries[i].Metadata.Name, want)
		}
	}
}

func TestRemoveDeletesRegistryState(t *testing.T) {
	t.Parallel()

	directory := testutil.SocketDir(t)
	metadata := testMetadata("target")
	metadata.PID = os.Getpid()
	if err := WriteMetadata(directory, metadata); err != nil {
		t.Fatal(err)
	}

	if err := Remove(directory, "target"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(MetadataPath(directory, "target")); !os.IsNotExist(err) {
		t.Error("metadata survived Remove")
	}
	// Removing an absent session is not an error.
	if err := Remove(directory, "target"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestProcessAliveSelfAndDead(t *testing.T) {
	t.Parallel()

	if !processAlive(os.Getpid()) {
		t.Error("processAlive(self): got false")
	}
	if processAlive(deadPID) {
		t.Error("processAlive(dead): got true")
	}
	if processAlive(0) || processAlive(-1) {
		t.Error("processAlive on non-positive pid: got true")
	}
}
