// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge connects a robot process to one remote monitor over
// TCP.
//
// The application talks to a [Mediator]: [Mediator.SendEvent] queues
// log records, plot samples, pongs, and path reports for the monitor,
// and [Mediator.PollEvents] returns the pings and path uploads the
// monitor has sent. Neither call blocks. Each PollEvents call also
// queues a [PollTick], which is what tells the [Listener] to read the
// socket and flush plot batches, so the polling cadence sets inbound
// latency.
//
// The Listener is a single goroutine that owns the TCP listener, the
// accepted connection, the log backlog, and the plot manager. Nothing
// else touches them, so there are no locks: the Mediator's two
// buffered channels are the only shared state. A helper goroutine
// blocks in Accept and hands each connection to the Listener; at most
// one client is served at a time and the next waits until the current
// session ends.
//
// The log backlog keeps every record for the life of the process with
// a cursor marking how far it has been sent. The cursor survives
// reconnects: a monitor that reconnects (or a second monitor after the
// first) receives only records that no session has received yet.
//
// # Process-wide handle
//
// [Initialize] starts a Listener, installs the Mediator as the
// process-wide handle, and makes its logger the slog default, so any
// slog call in the process is echoed locally and forwarded to the
// monitor. [Plot] and [PlotSub] emit samples through the installed
// handle without threading the Mediator through every call site;
// [PlotTo] does the same for an explicit Mediator. The sample type is
// checked at compile time by the [Shape] constraint.
//
// Forwarding from the log hook and the plot helpers is best effort:
// when the outbound queue is full the event is dropped and counted
// rather than blocking the caller.
package bridge
