// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/bureau-foundation/robolink/lib/framing"
	"github.com/bureau-foundation/robolink/lib/packet"
	"github.com/bureau-foundation/robolink/lib/testutil"
)

const testTimeout = 5 * time.Second

// testBridge is a running bridge on an ephemeral loopback port.
type testBridge struct {
	mediator *Mediator
	recorder *testutil.LogRecorder
	cancel   context.CancelFunc
}

// startBridge starts a bridge with test defaults. modify may adjust
// the config before Start.
func startBridge(t *testing.T, modify func(*Config)) *testBridge {
	t.Helper()
	recorder := testutil.NewLogRecorder()
	config := Config{
		ListenAddress: "127.0.0.1:0",
		RobotName:     "test-robot",
		LocalHandler:  recorder,
		Registerer:    prometheus.NewRegistry(),
	}
	if modify != nil {
		modify(&config)
	}

	ctx, cancel := context.WithCancel(context.Background())
	mediator, err := Start(ctx, config)
	if err != nil {
		cancel()
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		testutil.RequireClosed(t, mediator.Done(), testTimeout, "listener exit on cleanup")
	})
	return &testBridge{mediator: mediator, recorder: recorder, cancel: cancel}
}

// newIdleMediator returns a Mediator with no Listener consuming its
// queues.
func newIdleMediator(t *testing.T, modify func(*Config)) *Mediator {
	t.Helper()
	config := Config{LocalHandler: testutil.NewLogRecorder()}
	if modify != nil {
		modify(&config)
	}
	mediator, err := newMediator(config.withDefaults())
	if err != nil {
		t.Fatalf("newMediator: %v", err)
	}
	return mediator
}

// poll calls PollEvents until an event satisfying match arrives, and
// returns it. Events that do not match are discarded.
func (b *testBridge) poll(t *testing.T, match func(InboundEvent) bool, msgAndArgs ...any) InboundEvent {
	t.Helper()
	var found InboundEvent
	testutil.Eventually(t, testTimeout, func() bool {
		for _, event := range b.mediator.PollEvents() {
			if match(event) {
				found = event
				return true
			}
		}
		return false
	}, msgAndArgs...)
	return found
}

// pollUntil calls PollEvents until condition holds.
func (b *testBridge) pollUntil(t *testing.T, condition func() bool, msgAndArgs ...any) {
	t.Helper()
	testutil.Eventually(t, testTimeout, func() bool {
		b.mediator.PollEvents()
		return condition()
	}, msgAndArgs...)
}

// waitForRequests polls until the Listener has read n RequestLogs
// packets in total. The backlog is written in the same step.
func (b *testBridge) waitForRequests(t *testing.T, n float64) {
	t.Helper()
	requests := b.mediator.metrics.packetsReceived.WithLabelValues(packet.TagRequestLogs.String())
	b.pollUntil(t, func() bool {
		return metricValue(t, requests) == n
	}, "waiting for %v RequestLogs", n)
}

// testClient is the monitor side of a session.
type testClient struct {
	conn net.Conn
}

func dialBridge(t *testing.T, b *testBridge) *testClient {
	t.Helper()
	return &testClient{conn: testutil.Dial(t, b.mediator.Addr())}
}

func (c *testClient) send(t *testing.T, p packet.Inbound) {
	t.Helper()
	if err := framing.Send(c.conn, p, packet.EncodeInbound); err != nil {
		t.Fatalf("client send %T: %v", p, err)
	}
}

func (c *testClient) receive(t *testing.T) packet.Outbound {
	t.Helper()
	p, err := c.tryReceive(testTimeout)
	if err != nil {
		t.Fatalf("client receive: %v", err)
	}
	return p
}

func (c *testClient) tryReceive(timeout time.Duration) (packet.Outbound, error) {
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	defer c.conn.SetReadDeadline(time.Time{})
	return framing.Receive(c.conn, 0, packet.DecodeOutbound)
}

// handshake reads the RobotInfo frame and answers with ClientInfo.
func (c *testClient) handshake(t *testing.T, name string) packet.RobotInfo {
	t.Helper()
	first := c.receive(t)
	info, ok := first.(packet.RobotInfo)
	if !ok {
		t.Fatalf("first packet = %#v, want RobotInfo", first)
	}
	c.send(t, packet.ClientInfo{Name: name})
	return info
}

// metricValue sums the counter and gauge values a collector reports.
func metricValue(t *testing.T, collector prometheus.Collector) float64 {
	t.Helper()
	metrics := make(chan prometheus.Metric, 64)
	collector.Collect(metrics)
	close(metrics)

	total := 0.0
	for metric := range metrics {
		var written dto.Metric
		if err := metric.Write(&written); err != nil {
			t.Fatalf("writing metric: %v", err)
		}
		switch {
		case written.Counter != nil:
			total += written.Counter.GetValue()
		case written.Gauge != nil:
			total += written.Gauge.GetValue()
		}
	}
	return total
}

func logEvent(message string) LogEvent {
	return LogEvent{Record: packet.NewLogRecord(packet.LevelInfo, "test", message, time.Unix(1700000000, 0))}
}

func isPing(event InboundEvent) bool {
	_, ok := event.(PingEvent)
	return ok
}
