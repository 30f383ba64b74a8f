// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package plot batches plot samples per (series, subseries) key and
// decides when a batch is ready to ship.
//
// A [Manager] maps each key to a [SubPlot]. The first sample for a key
// fixes its shape; later samples of another shape are rejected with a
// warning. [Manager.BuffersToSend] drains every SubPlot that has
// reached the batch size, or that holds samples and has not been
// flushed for the flush interval. SubPlots are never removed, only
// drained.
//
// A Manager is owned by one goroutine (the bridge Listener) and does
// no locking.
package plot
