// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/robolink/lib/codec"
)

func TestSendEventBackpressure(t *testing.T) {
	const capacity = 8
	mediator := newIdleMediator(t, func(c *Config) { c.OutboundCapacity = capacity })

	for call := 1; call <= capacity; call++ {
		if err := mediator.SendEvent(logEvent("fill")); err != nil {
			t.Fatalf("call %d: %v", call, err)
		}
	}
	if err := mediator.SendEvent(logEvent("overflow")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("call %d error = %v, want ErrQueueFull", capacity+1, err)
	}
	if got := metricValue(t, mediator.metrics.queueRejections); got != 1 {
		t.Errorf("queue rejections = %v, want 1", got)
	}
}

func TestSendEventsStopsAtFirstFailure(t *testing.T) {
	mediator := newIdleMediator(t, func(c *Config) { c.OutboundCapacity = 3 })

	events := []OutboundEvent{logEvent("1"), logEvent("2"), logEvent("3"), logEvent("4"), logEvent("5")}
	err := mediator.SendEvents(events)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("SendEvents error = %v, want ErrQueueFull", err)
	}
	if !strings.Contains(err.Error(), "event 4 of 5") {
		t.Errorf("SendEvents error = %q, want it to name event 4", err)
	}

	// The first three stay queued, in order.
	for _, want := range []string{"1", "2", "3"} {
		event := <-mediator.outbound
		if got := event.(LogEvent).Record.Message; got != want {
			t.Errorf("queued message = %q, want %q", got, want)
		}
	}
	if len(mediator.outbound) != 0 {
		t.Errorf("%d events queued after the failure, want 0", len(mediator.outbound))
	}
}

func TestSendEventAfterClose(t *testing.T) {
	mediator := newIdleMediator(t, nil)
	mediator.Close()
	mediator.Close()

	if err := mediator.SendEvent(PongEvent{}); !errors.Is(err, ErrClosed) {
		t.Errorf("SendEvent after Close = %v, want ErrClosed", err)
	}
}

func TestSendEventRejectsNil(t *testing.T) {
	mediator := newIdleMediator(t, nil)
	if err := mediator.SendEvent(nil); err == nil {
		t.Error("SendEvent(nil) succeeded")
	}
}

func TestPollEventsQueuesTickThenDrains(t *testing.T) {
	mediator := newIdleMediator(t, nil)
	payload := codec.RawMessage{0x82, 0x01, 0x02}
	mediator.inbound <- PingEvent{}
	mediator.inbound <- PathEvent{Payload: payload}

	events := mediator.PollEvents()
	if len(events) != 2 {
		t.Fatalf("PollEvents returned %d events, want 2", len(events))
	}
	if _, ok := events[0].(PingEvent); !ok {
		t.Errorf("event 0 = %#v, want PingEvent", events[0])
	}
	if path, ok := events[1].(PathEvent); !ok || !bytes.Equal(path.Payload, payload) {
		t.Errorf("event 1 = %#v, want PathEvent with payload", events[1])
	}

	if len(mediator.outbound) != 1 {
		t.Fatalf("outbound holds %d events, want 1 PollTick", len(mediator.outbound))
	}
	if _, ok := (<-mediator.outbound).(PollTick); !ok {
		t.Error("queued event is not a PollTick")
	}

	if events := mediator.PollEvents(); len(events) != 0 {
		t.Errorf("second PollEvents returned %d events, want 0", len(events))
	}
}

func TestPollEventsWithFullQueueStillDrains(t *testing.T) {
	mediator := newIdleMediator(t, func(c *Config) { c.OutboundCapacity = 1 })
	mediator.SendEvent(PongEvent{})
	mediator.inbound <- PingEvent{}

	if events := mediator.PollEvents(); len(events) != 1 {
		t.Errorf("PollEvents returned %d events, want 1", len(events))
	}
}

func TestPollEventsSkipsTickWhenQueueFull(t *testing.T) {
	mediator := newIdleMediator(t, func(c *Config) { c.OutboundCapacity = 2 })
	for range 2 {
		if err := mediator.SendEvent(logEvent("fill")); err != nil {
			t.Fatalf("SendEvent: %v", err)
		}
	}
	mediator.inbound <- PingEvent{}

	events := mediator.PollEvents()
	if len(events) != 1 {
		t.Fatalf("PollEvents returned %d events, want 1", len(events))
	}
	if got := metricValue(t, mediator.metrics.droppedEvents.WithLabelValues(dropPollTick)); got != 1 {
		t.Errorf("skipped ticks = %v, want 1", got)
	}
	for range 2 {
		if _, ok := (<-mediator.outbound).(LogEvent); !ok {
			t.Error("queued event is not a LogEvent")
		}
	}
}
