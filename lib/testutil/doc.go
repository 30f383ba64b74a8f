// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for robolink packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the
// select-with-timeout pattern so that a test waiting on a goroutine
// fails with a message instead of hanging. They are the only place
// test code uses real wall-clock timeouts.
//
// [ListenLoopback] and [ConnPair] provide real TCP sockets on
// 127.0.0.1 with cleanup registered on the test, for exercising the
// framing pump and the bridge listener against the kernel's actual
// segmenting and close behavior.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
