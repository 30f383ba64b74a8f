// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/bureau-foundation/robolink/lib/clock"
	"github.com/bureau-foundation/robolink/lib/codec"
	"github.com/bureau-foundation/robolink/lib/packet"
	"github.com/bureau-foundation/robolink/lib/plot"
	"github.com/bureau-foundation/robolink/lib/testutil"
)

func TestHandshake(t *testing.T) {
	bridge := startBridge(t, nil)
	client := dialBridge(t, bridge)

	info := client.handshake(t, "laptop")
	if info.Name != "test-robot" {
		t.Errorf("RobotInfo name = %q, want test-robot", info.Name)
	}

	bridge.pollUntil(t, func() bool {
		_, ok := bridge.recorder.Find("connection established with client")
		return ok
	}, "waiting for ClientInfo to be logged")

	record, _ := bridge.recorder.Find("connection established with client")
	if value, _ := testutil.Attr(record, "client"); value.String() != "laptop" {
		t.Errorf("client attr = %q, want laptop", value.String())
	}
	if _, ok := bridge.recorder.Find("client connected"); !ok {
		t.Error("no \"client connected\" record")
	}
	if got := metricValue(t, bridge.mediator.metrics.sessions); got != 1 {
		t.Errorf("sessions = %v, want 1", got)
	}
}

func TestHandshakeSkippedIsOnlyAWarning(t *testing.T) {
	bridge := startBridge(t, nil)
	client := dialBridge(t, bridge)
	client.receive(t) // RobotInfo

	client.send(t, packet.Ping{})
	bridge.poll(t, isPing, "waiting for ping without handshake")

	record, ok := bridge.recorder.Find("client did not send ClientInfo first")
	if !ok {
		t.Fatal("no warning about the missing handshake")
	}
	if record.Level != slog.LevelWarn {
		t.Errorf("level = %v, want WARN", record.Level)
	}
}

func TestBacklogResend(t *testing.T) {
	bridge := startBridge(t, nil)
	mediator := bridge.mediator

	for _, message := range []string{"first", "second", "third"} {
		if err := mediator.SendEvent(logEvent(message)); err != nil {
			t.Fatalf("SendEvent: %v", err)
		}
	}
	testutil.Eventually(t, testTimeout, func() bool {
		return metricValue(t, mediator.metrics.backlogRecords) == 3
	}, "waiting for the backlog to hold 3 records")

	client := dialBridge(t, bridge)
	client.handshake(t, "laptop")
	client.send(t, packet.RequestLogs{})
	bridge.waitForRequests(t, 1)

	for _, want := range []string{"first", "second", "third"} {
		received := client.receive(t)
		log, ok := received.(packet.Log)
		if !ok {
			t.Fatalf("received %#v, want Log", received)
		}
		if log.Record.Message != want {
			t.Errorf("log message = %q, want %q", log.Record.Message, want)
		}
	}

	// A second request with nothing new sends nothing: the next packet
	// after it is the Pong.
	client.send(t, packet.RequestLogs{})
	client.send(t, packet.Ping{})
	bridge.poll(t, isPing, "waiting for ping")
	if err := mediator.SendEvent(PongEvent{}); err != nil {
		t.Fatalf("SendEvent(Pong): %v", err)
	}
	if received := client.receive(t); received != (packet.Pong{}) {
		t.Fatalf("received %#v after second RequestLogs, want Pong", received)
	}
}

func TestLogSentImmediatelyWhileConnected(t *testing.T) {
	bridge := startBridge(t, nil)
	client := dialBridge(t, bridge)
	client.handshake(t, "laptop")

	bridge.mediator.SendEvent(logEvent("live"))
	received := client.receive(t)
	if log, ok := received.(packet.Log); !ok || log.Record.Message != "live" {
		t.Fatalf("received %#v, want Log \"live\"", received)
	}
}

// limitedConn fails every write after the first allowed writes, the
// way a connection whose peer vanished does.
type limitedConn struct {
	net.Conn
	writesLeft atomic.Int32
}

func (c *limitedConn) Write(data []byte) (int, error) {
	if c.writesLeft.Add(-1) < 0 {
		return 0, &net.OpError{Op: "write", Net: "tcp", Err: os.NewSyscallError("write", syscall.EPIPE)}
	}
	return c.Conn.Write(data)
}

func TestReconnectResumesFromCursor(t *testing.T) {
	bridge := startBridge(t, nil)
	mediator := bridge.mediator

	for _, message := range []string{"first", "second", "third"} {
		mediator.SendEvent(logEvent(message))
	}
	testutil.Eventually(t, testTimeout, func() bool {
		return metricValue(t, mediator.metrics.backlogRecords) == 3
	}, "waiting for the backlog to hold 3 records")

	// First session: RobotInfo and two logs get out, the third write
	// fails.
	client, server := testutil.ConnPair(t)
	limited := &limitedConn{Conn: server}
	limited.writesLeft.Store(3)
	testutil.RequireSend(t, mediator.listener.accepted, net.Conn(limited), testTimeout, "handing over first session")

	firstClient := &testClient{conn: client}
	firstClient.handshake(t, "first")
	firstClient.send(t, packet.RequestLogs{})
	bridge.pollUntil(t, func() bool {
		return metricValue(t, mediator.metrics.disconnects) == 1
	}, "waiting for the first session to fail")

	for _, want := range []string{"first", "second"} {
		received := firstClient.receive(t)
		if log, ok := received.(packet.Log); !ok || log.Record.Message != want {
			t.Fatalf("first session received %#v, want Log %q", received, want)
		}
	}
	if _, err := firstClient.tryReceive(testTimeout); !errors.Is(err, io.EOF) {
		t.Fatalf("first session after failure: %v, want EOF", err)
	}
	if _, ok := bridge.recorder.Find("client disconnected since last packet"); !ok {
		t.Error("no disconnect warning")
	}

	// Second session: only the record that never went out.
	secondClient := dialBridge(t, bridge)
	secondClient.handshake(t, "second")
	secondClient.send(t, packet.RequestLogs{})
	bridge.waitForRequests(t, 2)
	received := secondClient.receive(t)
	if log, ok := received.(packet.Log); !ok || log.Record.Message != "third" {
		t.Fatalf("second session received %#v, want Log \"third\"", received)
	}

	secondClient.send(t, packet.Ping{})
	bridge.poll(t, isPing, "waiting for ping")
	mediator.SendEvent(PongEvent{})
	if received := secondClient.receive(t); received != (packet.Pong{}) {
		t.Fatalf("second session received %#v, want Pong", received)
	}
}

func TestPathBothDirections(t *testing.T) {
	bridge := startBridge(t, nil)
	client := dialBridge(t, bridge)
	client.handshake(t, "laptop")

	uploaded, err := codec.Marshal([]string{"start", "forward"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	client.send(t, packet.Path{Payload: uploaded})
	event := bridge.poll(t, func(event InboundEvent) bool {
		_, ok := event.(PathEvent)
		return ok
	}, "waiting for path upload")
	if got := event.(PathEvent).Payload; !bytes.Equal(got, uploaded) {
		t.Errorf("uploaded payload = %x, want %x", got, uploaded)
	}

	reported, _ := codec.Marshal(map[string]int{"step": 2})
	bridge.mediator.SendEvent(PathEvent{Payload: reported})
	received := client.receive(t)
	path, ok := received.(packet.Path)
	if !ok {
		t.Fatalf("received %#v, want Path", received)
	}
	if !bytes.Equal(path.Payload, reported) {
		t.Errorf("reported payload = %x, want %x", path.Payload, reported)
	}
}

func TestPlotSizeFlushDelivered(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	bridge := startBridge(t, func(c *Config) { c.Clock = fake })
	client := dialBridge(t, bridge)
	client.handshake(t, "laptop")

	for i := range plot.DefaultBatchSize {
		if err := PlotTo(bridge.mediator, "speed", "left", i); err != nil {
			t.Fatalf("PlotTo %d: %v", i, err)
		}
	}

	received := client.receive(t)
	buffer, ok := received.(packet.PointBuffer)
	if !ok {
		t.Fatalf("received %#v, want PointBuffer", received)
	}
	if buffer.Series != "speed" || buffer.Subseries != "left" {
		t.Errorf("key = %s/%s, want speed/left", buffer.Series, buffer.Subseries)
	}
	if len(buffer.Buffer.Scalar) != plot.DefaultBatchSize {
		t.Fatalf("buffer holds %d samples, want %d", len(buffer.Buffer.Scalar), plot.DefaultBatchSize)
	}
	for i, point := range buffer.Buffer.Scalar {
		if point.Value != float64(i) {
			t.Errorf("sample %d = %v, want %v", i, point.Value, float64(i))
		}
	}
}

func TestPlotTimeFlushOnPoll(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	bridge := startBridge(t, func(c *Config) { c.Clock = fake })
	client := dialBridge(t, bridge)
	client.handshake(t, "laptop")

	for i := range 3 {
		PlotTo(bridge.mediator, "pose", "pose", [3]float64{float64(i), 0, 1})
	}
	fake.Advance(plot.DefaultFlushInterval)
	bridge.mediator.PollEvents()

	received := client.receive(t)
	buffer, ok := received.(packet.PointBuffer)
	if !ok {
		t.Fatalf("received %#v, want PointBuffer", received)
	}
	if buffer.Buffer.Shape != packet.ShapeVec3 || len(buffer.Buffer.Vec3) != 3 {
		t.Errorf("buffer = %+v, want 3 vec3 samples", buffer.Buffer)
	}
}

func TestPlotShapeMismatchCounted(t *testing.T) {
	bridge := startBridge(t, nil)
	mediator := bridge.mediator

	PlotTo(mediator, "imu", "accel", 1.5)
	PlotTo(mediator, "imu", "accel", [3]float64{1, 2, 3})

	testutil.Eventually(t, testTimeout, func() bool {
		return metricValue(t, mediator.metrics.rejectedSamples) == 1
	}, "waiting for the rejected sample to be counted")
	if n := bridge.recorder.Count(slog.LevelWarn); n != 1 {
		t.Errorf("warnings = %d, want 1", n)
	}
}

func TestZeroSampleCountedAndKeyStaysUsable(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	bridge := startBridge(t, func(c *Config) { c.Clock = fake })
	client := dialBridge(t, bridge)
	client.handshake(t, "laptop")
	mediator := bridge.mediator

	if err := mediator.SendEvent(PointEvent{Series: "imu", Subseries: "accel"}); err != nil {
		t.Fatalf("SendEvent: %v", err)
	}
	bridge.pollUntil(t, func() bool {
		return metricValue(t, mediator.metrics.rejectedSamples) == 1
	}, "waiting for the zero sample to be counted")

	PlotTo(mediator, "imu", "accel", 1.5)
	fake.Advance(plot.DefaultFlushInterval)
	mediator.PollEvents()

	received := client.receive(t)
	buffer, ok := received.(packet.PointBuffer)
	if !ok {
		t.Fatalf("received %#v, want PointBuffer", received)
	}
	if buffer.Buffer.Shape != packet.ShapeScalar || len(buffer.Buffer.Scalar) != 1 {
		t.Errorf("buffer = %+v, want 1 scalar sample", buffer.Buffer)
	}
}

func TestOversizeFrameDropsSession(t *testing.T) {
	bridge := startBridge(t, func(c *Config) { c.MaxFrameSize = 64 })
	client := dialBridge(t, bridge)
	client.handshake(t, "laptop")

	client.conn.Write([]byte{0, 0, 4, 0}) // announces 1024 bytes
	bridge.pollUntil(t, func() bool {
		return metricValue(t, bridge.mediator.metrics.disconnects) == 1
	}, "waiting for the oversize frame to end the session")

	if _, err := client.tryReceive(testTimeout); !errors.Is(err, io.EOF) {
		t.Errorf("client read after drop: %v, want EOF", err)
	}

	// The Listener goes back to accepting.
	next := dialBridge(t, bridge)
	next.handshake(t, "laptop")
}

func TestSecondClientWaitsForFirst(t *testing.T) {
	bridge := startBridge(t, nil)
	first := dialBridge(t, bridge)
	first.handshake(t, "first")

	second := dialBridge(t, bridge)
	if received, err := second.tryReceive(200 * time.Millisecond); err == nil {
		t.Fatalf("second client received %#v while the first was connected", received)
	}

	first.conn.Close()
	bridge.pollUntil(t, func() bool {
		return metricValue(t, bridge.mediator.metrics.disconnects) == 1
	}, "waiting for the first client's close to be noticed")

	if received := second.receive(t); received != (packet.RobotInfo{Name: "test-robot"}) {
		t.Errorf("second client received %#v, want RobotInfo", received)
	}
}

func TestInboundQueueFullDropsEvents(t *testing.T) {
	bridge := startBridge(t, func(c *Config) { c.InboundCapacity = 1 })
	mediator := bridge.mediator
	client := dialBridge(t, bridge)
	client.handshake(t, "laptop")

	for range 3 {
		client.send(t, packet.Ping{})
	}
	// Tick without draining so the pings pile up in the inbound queue.
	pings := mediator.metrics.packetsReceived.WithLabelValues(packet.TagPing.String())
	testutil.Eventually(t, testTimeout, func() bool {
		mediator.SendEvent(PollTick{})
		return metricValue(t, pings) == 3
	}, "waiting for 3 pings to be read")

	dropped := mediator.metrics.droppedEvents.WithLabelValues(dropInbound)
	if got := metricValue(t, dropped); got != 2 {
		t.Errorf("dropped inbound events = %v, want 2", got)
	}
	if events := mediator.PollEvents(); len(events) != 1 {
		t.Errorf("PollEvents returned %d events, want 1", len(events))
	}
}

func TestDisconnectedListenerKeepsConsuming(t *testing.T) {
	bridge := startBridge(t, func(c *Config) { c.OutboundCapacity = 4 })
	mediator := bridge.mediator

	// Far more events than the queue holds; none may be rejected
	// while no client is connected.
	for i := range 100 {
		event := OutboundEvent(PongEvent{})
		if i%2 == 0 {
			event = logEvent("queued")
		}
		testutil.Eventually(t, testTimeout, func() bool {
			return !errors.Is(mediator.SendEvent(event), ErrQueueFull)
		}, "event %d stayed rejected", i)
	}
	testutil.Eventually(t, testTimeout, func() bool {
		return metricValue(t, mediator.metrics.backlogRecords) == 50
	}, "waiting for 50 backlog records")
	if got := metricValue(t, mediator.metrics.droppedEvents.WithLabelValues(dropNoClient)); got != 50 {
		t.Errorf("dropped pongs = %v, want 50", got)
	}
}

func TestCloseStopsListener(t *testing.T) {
	bridge := startBridge(t, nil)
	mediator := bridge.mediator
	client := dialBridge(t, bridge)
	client.receive(t) // RobotInfo

	mediator.SendEvent(logEvent("last words"))
	mediator.Close()

	testutil.RequireClosed(t, mediator.Done(), testTimeout, "listener exit after Close")
	if err := mediator.Wait(); !errors.Is(err, ErrMediatorClosed) {
		t.Fatalf("Wait = %v, want ErrMediatorClosed", err)
	}

	received := client.receive(t)
	if log, ok := received.(packet.Log); !ok || log.Record.Message != "last words" {
		t.Errorf("received %#v, want the record queued before Close", received)
	}
	if _, err := client.tryReceive(testTimeout); !errors.Is(err, io.EOF) {
		t.Errorf("client read after shutdown: %v, want EOF", err)
	}

	record, ok := bridge.recorder.Find("mediator closed, communication with clients is permanently impossible")
	if !ok || record.Level != slog.LevelError {
		t.Error("no error record for the fatal exit")
	}
	if err := mediator.SendEvent(PongEvent{}); !errors.Is(err, ErrClosed) {
		t.Errorf("SendEvent after exit = %v, want ErrClosed", err)
	}
}

func TestContextCancelStopsListener(t *testing.T) {
	bridge := startBridge(t, nil)
	client := dialBridge(t, bridge)
	client.receive(t) // RobotInfo

	bridge.cancel()
	testutil.RequireClosed(t, bridge.mediator.Done(), testTimeout, "listener exit after cancel")
	if err := bridge.mediator.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
	if _, err := client.tryReceive(testTimeout); !errors.Is(err, io.EOF) {
		t.Errorf("client read after cancel: %v, want EOF", err)
	}
	if _, err := net.DialTimeout("tcp", bridge.mediator.Addr().String(), time.Second); err == nil {
		t.Error("listener still accepting after cancel")
	}
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	_, err := Start(context.Background(), Config{ListenAddress: "127.0.0.1:0", OutboundCapacity: -1})
	if err == nil {
		t.Fatal("Start succeeded with a negative capacity")
	}
}

func TestStartReportsBindFailure(t *testing.T) {
	occupied := testutil.ListenLoopback(t)
	_, err := Start(context.Background(), Config{
		ListenAddress: occupied.Addr().String(),
		LocalHandler:  testutil.NewLogRecorder(),
	})
	if err == nil {
		t.Fatal("Start succeeded on an occupied port")
	}
}
