// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// The holder's drain and linger intervals must be controllable from
// tests, so the holder accepts a Clock parameter for them instead of
// calling time.After, time.AfterFunc, or time.Sleep directly. Real() provides
// the standard library behavior; Fake() provides a deterministic clock
// that advances only when Advance is called.
//
// When a goroutine calls Sleep, After, or AfterFunc on a FakeClock, it
// registers a pending waiter. Tests use WaitForTimers to block until
// the expected number of waiters are registered before calling Advance,
// which eliminates the race between timer registration and time
// advancement.
package clock
