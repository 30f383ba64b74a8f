// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"time"

	"github.com/bureau-foundation/robolink/lib/codec"
	"github.com/bureau-foundation/robolink/lib/packet"
)

// OutboundEvent is a message from the application to the Listener.
// The implementations are LogEvent, PongEvent, PathEvent, PointEvent,
// and PollTick.
type OutboundEvent interface {
	outboundEvent() string
}

// InboundEvent is a message from the Listener to the application. The
// implementations are PingEvent and PathEvent.
type InboundEvent interface {
	inboundEvent() string
}

// LogEvent appends a record to the backlog and sends everything the
// client has not yet received.
type LogEvent struct {
	Record packet.LogRecord
}

// PongEvent answers a PingEvent.
type PongEvent struct{}

// PathEvent carries an opaque path payload (see lib/path). Sent by the
// application it reports the robot's path to the monitor; received
// from PollEvents it is a path the monitor uploaded.
type PathEvent struct {
	Payload codec.RawMessage
}

// PointEvent records one plot sample under (Series, Subseries). At is
// the instant the sample was taken; zero means when the Listener
// processes it.
type PointEvent struct {
	Series    string
	Subseries string
	Sample    packet.Sample
	At        time.Time
}

// PollTick makes the Listener read the socket and flush ready plot
// batches. PollEvents sends one per call.
type PollTick struct{}

// PingEvent reports that the monitor sent a Ping. Answer with a
// PongEvent.
type PingEvent struct{}

func (LogEvent) outboundEvent() string   { return "log" }
func (PongEvent) outboundEvent() string  { return "pong" }
func (PathEvent) outboundEvent() string  { return "path" }
func (PointEvent) outboundEvent() string { return "point" }
func (PollTick) outboundEvent() string   { return "poll_tick" }

func (PingEvent) inboundEvent() string { return "ping" }
func (PathEvent) inboundEvent() string { return "path" }
