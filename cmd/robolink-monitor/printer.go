// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bureau-foundation/robolink/lib/codec"
	"github.com/bureau-foundation/robolink/lib/packet"
	"github.com/bureau-foundation/robolink/lib/path"
)

const timestampFormat = "15:04:05.000"

// ANSI colours per log level.
var levelColors = map[packet.Level]string{
	packet.LevelError: "\x1b[31m",
	packet.LevelWarn:  "\x1b[33m",
	packet.LevelInfo:  "\x1b[32m",
	packet.LevelDebug: "\x1b[34m",
	packet.LevelTrace: "\x1b[90m",
}

const colorReset = "\x1b[0m"

// printer renders received packets as text lines.
type printer struct {
	out      io.Writer
	color    bool
	location *time.Location

	// pingSent is when the last Ping was written, for round-trip
	// display. Zero when no Ping is outstanding.
	pingSent time.Time
}

func (p *printer) print(received packet.Outbound, now time.Time) {
	fmt.Fprintln(p.out, p.format(received, now))
}

func (p *printer) format(received packet.Outbound, now time.Time) string {
	switch received := received.(type) {
	case packet.RobotInfo:
		return fmt.Sprintf("== connected to robot %q", received.Name)
	case packet.Log:
		return p.formatLog(received.Record)
	case packet.Pong:
		if p.pingSent.IsZero() {
			return "pong"
		}
		roundTrip := now.Sub(p.pingSent)
		p.pingSent = time.Time{}
		return fmt.Sprintf("pong after %v", roundTrip.Round(time.Microsecond))
	case packet.Path:
		return formatPath(received.Payload)
	case packet.PointBuffer:
		return formatPoints(received)
	default:
		return fmt.Sprintf("unhandled packet %s", received.OutboundTag())
	}
}

func (p *printer) formatLog(record packet.LogRecord) string {
	location := p.location
	if location == nil {
		location = time.Local
	}
	level := fmt.Sprintf("%-5s", record.Level)
	if p.color {
		if color, ok := levelColors[record.Level]; ok {
			level = color + level + colorReset
		}
	}
	return fmt.Sprintf("%s %s %s: %s",
		record.Time().In(location).Format(timestampFormat), level, record.Target, record.Message)
}

func formatPath(payload codec.RawMessage) string {
	actions, err := path.Decode(payload)
	if err != nil {
		diagnostic, diagErr := codec.Diagnose(payload)
		if diagErr != nil {
			diagnostic = fmt.Sprintf("%x", []byte(payload))
		}
		return fmt.Sprintf("path (undecodable: %v): %s", err, diagnostic)
	}
	steps := make([]string, len(actions))
	for index, action := range actions {
		steps[index] = fmt.Sprintf("%s%+v", action.Kind(), action)
	}
	return fmt.Sprintf("path with %d actions: %s", len(actions), strings.Join(steps, ", "))
}

func formatPoints(points packet.PointBuffer) string {
	buffer := points.Buffer
	count := buffer.Len()
	name := points.Series
	if points.Subseries != points.Series {
		name += "/" + points.Subseries
	}
	if count == 0 {
		return fmt.Sprintf("plot %s: empty %s batch", name, buffer.Shape)
	}

	var latest string
	var elapsed time.Duration
	switch buffer.Shape {
	case packet.ShapeScalar:
		last := buffer.Scalar[count-1]
		latest, elapsed = fmt.Sprintf("%.4g", last.Value), last.Elapsed
	case packet.ShapeVec2:
		last := buffer.Vec2[count-1]
		latest, elapsed = fmt.Sprintf("%.4g", last.Value), last.Elapsed
	case packet.ShapeVec3:
		last := buffer.Vec3[count-1]
		latest, elapsed = fmt.Sprintf("%.4g", last.Value), last.Elapsed
	}
	return fmt.Sprintf("plot %s: %d %s samples, latest %s at +%v", name, count, buffer.Shape, latest, elapsed)
}
