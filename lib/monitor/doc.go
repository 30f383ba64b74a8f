// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitor is the client side of the robolink protocol: it
// connects to a robot's bridge, identifies itself, and streams every
// packet the robot sends.
//
// [Client.Run] owns the connection lifecycle. It dials, sends
// ClientInfo, and reads frames until the connection fails, then waits
// with exponential backoff (250ms doubling to 5s, reset after a
// successful handshake) and dials again, until its context is
// cancelled. Received packets, starting with the robot's RobotInfo on
// every connection, arrive on [Client.Packets]. [Client.Send] and its
// shorthands write Ping, Path, and RequestLogs to the current
// connection.
//
// Unlike the robot side there is no batching and no non-blocking
// pump: a dedicated goroutine blocks in reads, and writes are
// serialized with a mutex.
package monitor
