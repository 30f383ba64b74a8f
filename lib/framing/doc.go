// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package framing implements robolink's length-prefixed frame format:
//
//	[4 bytes payload length, big-endian uint32] [payload]
//
// [Send] encodes a value and writes it as one frame. [Receive] reads
// one frame, blocking until it is complete.
//
// [Pump] is for a goroutine that owns a connection and must not block
// waiting for the peer. ReceiveAvailable checks without blocking
// whether the peer has sent anything. When the first byte of a frame is
// available it reads the rest of that frame with ordinary blocking
// reads, so a frame split across TCP segments needs no partial-frame
// bookkeeping in the caller. It hands the decoded packet to a handler
// and repeats until nothing more is waiting. A single call therefore
// drains what is ready now and never waits for the peer to start a new
// frame.
//
// Errors are typed: [*EncodeError] (value could not be serialized or
// is too large for a 32-bit length), [*DecodeError] (payload could not
// be decoded or the announced length exceeds the reader's limit), and
// [*IOError] (the connection failed or closed).
package framing
