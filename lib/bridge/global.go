// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/bureau-foundation/robolink/lib/packet"
)

// installed is the process-wide Mediator. It is written once by
// Install and read from any goroutine.
var installed atomic.Pointer[Mediator]

// Initialize starts a bridge, installs its Mediator process-wide, and
// makes its logger the slog default. It fails if a Mediator is already
// installed.
func Initialize(ctx context.Context, config Config) (*Mediator, error) {
	if Installed() != nil {
		return nil, ErrAlreadyInstalled
	}
	mediator, err := Start(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := Install(mediator); err != nil {
		mediator.Close()
		return nil, err
	}
	slog.SetDefault(mediator.Logger())
	return mediator, nil
}

// Install makes mediator the process-wide handle used by Emit, Plot,
// and PlotSub. It returns ErrAlreadyInstalled if one is already
// installed.
func Install(mediator *Mediator) error {
	if mediator == nil {
		return fmt.Errorf("bridge: cannot install a nil mediator")
	}
	if !installed.CompareAndSwap(nil, mediator) {
		return ErrAlreadyInstalled
	}
	return nil
}

// Installed returns the process-wide Mediator, or nil.
func Installed() *Mediator {
	return installed.Load()
}

// Emit forwards record through the installed Mediator. It does nothing
// when none is installed and drops the record when the queue is full.
func Emit(record packet.LogRecord) {
	if mediator := Installed(); mediator != nil {
		mediator.forwardLog(LogEvent{Record: record})
	}
}

// Shape is the set of value types a plot sample can be built from:
// plain numeric scalars, 2-vectors, and 3-vectors. Named types are not
// admitted; convert them at the call site.
type Shape interface {
	int | int8 | int16 | int32 | int64 |
		uint | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 |
		[2]float64 | [3]float64
}

// SampleOf converts value to a packet.Sample of the matching shape.
func SampleOf[V Shape](value V) packet.Sample {
	switch v := any(value).(type) {
	case int:
		return packet.Scalar(float64(v))
	case int8:
		return packet.Scalar(float64(v))
	case int16:
		return packet.Scalar(float64(v))
	case int32:
		return packet.Scalar(float64(v))
	case int64:
		return packet.Scalar(float64(v))
	case uint:
		return packet.Scalar(float64(v))
	case uint8:
		return packet.Scalar(float64(v))
	case uint16:
		return packet.Scalar(float64(v))
	case uint32:
		return packet.Scalar(float64(v))
	case uint64:
		return packet.Scalar(float64(v))
	case float32:
		return packet.Scalar(float64(v))
	case float64:
		return packet.Scalar(v)
	case [2]float64:
		return packet.Vec2(v)
	case [3]float64:
		return packet.Vec3(v)
	}
	panic(fmt.Sprintf("bridge: unhandled sample type %T", value))
}

// Plot records value under series, with the subseries named after the
// series, through the installed Mediator.
func Plot[V Shape](series string, value V) {
	PlotSub(series, series, value)
}

// PlotSub records value under (series, subseries) through the
// installed Mediator. It does nothing when none is installed and drops
// the sample when the queue is full.
func PlotSub[V Shape](series, subseries string, value V) {
	if mediator := Installed(); mediator != nil {
		if err := PlotTo(mediator, series, subseries, value); err != nil {
			mediator.metrics.dropped(dropPlotHelper)
		}
	}
}

// PlotTo records value under (series, subseries) through mediator,
// stamped with the current time. It returns SendEvent's error.
func PlotTo[V Shape](mediator *Mediator, series, subseries string, value V) error {
	return mediator.SendEvent(PointEvent{
		Series:    series,
		Subseries: subseries,
		Sample:    SampleOf(value),
		At:        mediator.clock.Now(),
	})
}
