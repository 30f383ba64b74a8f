// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package packet defines the robolink wire types: the packets a robot
// sends to its monitor ([Outbound]), the packets a monitor sends to the
// robot ([Inbound]), and the values they carry (log records and plot
// sample buffers).
//
// Each packet is encoded as a two-element CBOR array: a small integer
// tag followed by the variant's body. Tags are the protocol's stable
// identity for a variant. A tag is never reassigned: when a variant is
// retired its tag stays reserved, and a new variant takes the next
// unused number.
//
//	Outbound (robot → monitor)      Inbound (monitor → robot)
//	  0 Log                           0 ClientInfo
//	  1 Pong                          1 Ping
//	  2 Path                          2 Path
//	  3 PointBuffer                   3 (reserved)
//	  4 (reserved)                    4 RequestLogs
//	  5 RobotInfo
//
// Framing (length prefixes) is not this package's concern; see
// lib/framing.
package packet
