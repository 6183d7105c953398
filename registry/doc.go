// Copyright 2026 The Holdpty Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry implements holdpty's filesystem-as-registry
// discipline. There is no central daemon: each holder writes one JSON
// metadata record next to its endpoint, and every reader enumerates
// the session directory directly.
//
// The one ordering invariant that makes this safe: a holder writes its
// metadata only after its endpoint is listening, and removes the
// metadata before releasing the endpoint. A readable record therefore
// always names an endpoint that is (or was) accepting; records whose
// holder died are detected by a process probe corroborated by a short
// endpoint dial and reaped during enumeration.
package registry
