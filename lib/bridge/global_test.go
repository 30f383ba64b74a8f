// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/bureau-foundation/robolink/lib/packet"
	"github.com/bureau-foundation/robolink/lib/testutil"
)

// resetInstalled clears the process-wide handle when the test ends.
func resetInstalled(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { installed.Store(nil) })
}

func TestInstallTwice(t *testing.T) {
	resetInstalled(t)
	first := newIdleMediator(t, nil)
	second := newIdleMediator(t, nil)

	if err := Install(first); err != nil {
		t.Fatalf("first Install: %v", err)
	}
	if err := Install(second); !errors.Is(err, ErrAlreadyInstalled) {
		t.Fatalf("second Install = %v, want ErrAlreadyInstalled", err)
	}
	if Installed() != first {
		t.Error("second Install replaced the first mediator")
	}
}

func TestHelpersWithoutMediatorAreNoOps(t *testing.T) {
	resetInstalled(t)
	Plot("speed", 1.0)
	PlotSub("pose", "x", [2]float64{1, 2})
	Emit(packet.NewLogRecord(packet.LevelInfo, "test", "nobody listening", epochForTests))
}

func TestPlotThroughInstalledMediator(t *testing.T) {
	resetInstalled(t)
	mediator := newIdleMediator(t, nil)
	if err := Install(mediator); err != nil {
		t.Fatalf("Install: %v", err)
	}

	Plot("heading", float32(0.25))
	PlotSub("pose", "estimate", [3]float64{1, 2, 3})

	first := (<-mediator.outbound).(PointEvent)
	if first.Series != "heading" || first.Subseries != "heading" {
		t.Errorf("Plot key = %s/%s, want heading/heading", first.Series, first.Subseries)
	}
	if first.Sample != packet.Scalar(0.25) {
		t.Errorf("Plot sample = %v, want scalar 0.25", first.Sample)
	}
	if first.At.IsZero() {
		t.Error("Plot sample has no timestamp")
	}

	second := (<-mediator.outbound).(PointEvent)
	if second.Subseries != "estimate" || second.Sample.Shape() != packet.ShapeVec3 {
		t.Errorf("PlotSub event = %+v, want vec3 under pose/estimate", second)
	}
}

func TestPlotDropsWhenQueueFull(t *testing.T) {
	resetInstalled(t)
	mediator := newIdleMediator(t, func(c *Config) { c.OutboundCapacity = 1 })
	Install(mediator)

	Plot("a", 1)
	Plot("a", 2)

	if got := metricValue(t, mediator.metrics.droppedEvents.WithLabelValues(dropPlotHelper)); got != 1 {
		t.Errorf("dropped samples = %v, want 1", got)
	}
}

func TestEmitThroughInstalledMediator(t *testing.T) {
	resetInstalled(t)
	mediator := newIdleMediator(t, nil)
	Install(mediator)

	record := packet.NewLogRecord(packet.LevelWarn, "battery", "low", epochForTests)
	Emit(record)

	event := (<-mediator.outbound).(LogEvent)
	if event.Record != record {
		t.Errorf("emitted %+v, want %+v", event.Record, record)
	}
}

func TestSampleOf(t *testing.T) {
	tests := []struct {
		name string
		got  packet.Sample
		want packet.Sample
	}{
		{"int", SampleOf(3), packet.Scalar(3)},
		{"int8", SampleOf(int8(-4)), packet.Scalar(-4)},
		{"uint16", SampleOf(uint16(7)), packet.Scalar(7)},
		{"int64", SampleOf(int64(1 << 40)), packet.Scalar(1 << 40)},
		{"float32", SampleOf(float32(0.5)), packet.Scalar(0.5)},
		{"float64", SampleOf(2.25), packet.Scalar(2.25)},
		{"vec2", SampleOf([2]float64{1, 2}), packet.Vec2([2]float64{1, 2})},
		{"vec3", SampleOf([3]float64{1, 2, 3}), packet.Vec3([3]float64{1, 2, 3})},
	}
	for _, test := range tests {
		if test.got != test.want {
			t.Errorf("%s: SampleOf = %v, want %v", test.name, test.got, test.want)
		}
	}
}

func TestInitializeInstallsAndSetsDefaultLogger(t *testing.T) {
	resetInstalled(t)
	saved := slog.Default()
	t.Cleanup(func() { slog.SetDefault(saved) })

	ctx, cancel := context.WithCancel(context.Background())
	mediator, err := Initialize(ctx, Config{ListenAddress: "127.0.0.1:0", LocalHandler: testutil.NewLogRecorder()})
	if err != nil {
		cancel()
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		testutil.RequireClosed(t, mediator.Done(), testTimeout, "listener exit")
	})

	if Installed() != mediator {
		t.Error("Initialize did not install the mediator")
	}
	if slog.Default().Handler() != mediator.Logger().Handler() {
		t.Error("Initialize did not make the mediator's logger the default")
	}
	if _, err := Initialize(ctx, Config{ListenAddress: "127.0.0.1:0"}); !errors.Is(err, ErrAlreadyInstalled) {
		t.Errorf("second Initialize = %v, want ErrAlreadyInstalled", err)
	}
}
