// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "errors"

var (
	// ErrQueueFull is returned by SendEvent when the outbound queue is
	// at capacity. The event was not queued.
	ErrQueueFull = errors.New("bridge: outbound queue full")

	// ErrClosed is returned by SendEvent after the Mediator has been
	// closed or its Listener has exited.
	ErrClosed = errors.New("bridge: mediator closed")

	// ErrAlreadyInstalled is returned by Install when a process-wide
	// Mediator is already installed.
	ErrAlreadyInstalled = errors.New("bridge: a mediator is already installed")

	// ErrMediatorClosed is the Listener's exit error when its Mediator
	// was closed. No client communication is possible afterwards.
	ErrMediatorClosed = errors.New("bridge: mediator closed, client communication is permanently impossible")
)
