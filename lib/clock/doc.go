// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The plot batching engine decides when to flush by comparing elapsed
// time against a 100ms threshold, the monitor backs off between
// reconnect attempts, and the demo robot samples on a ticker. All of
// them take a Clock instead of calling the time package so that tests
// can drive time with Fake and assert exact flush and retry behavior
// without sleeping.
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	manager := plot.NewManager(plot.Options{Clock: c})
//	c.Advance(100 * time.Millisecond)
//
// Goroutines that wait on After or a Ticker register a pending timer;
// WaitForTimers blocks until a given number are registered, which
// removes the race between registration and Advance.
package clock
