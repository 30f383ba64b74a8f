// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/bureau-foundation/robolink/lib/clock"
)

// Mediator is the application's handle on the bridge. All methods are
// safe for concurrent use and none of them block.
type Mediator struct {
	outbound chan OutboundEvent
	inbound  chan InboundEvent

	// closed is closed by Close. The queues themselves are never
	// closed, so a SendEvent racing with Close cannot panic.
	closed    chan struct{}
	closeOnce sync.Once

	// done is closed when the Listener exits; runErr is its result.
	done   chan struct{}
	runErr error

	addr     net.Addr
	logger   *slog.Logger
	clock    clock.Clock
	metrics  *Metrics
	listener *Listener
}

// Start binds the listening socket and runs a Listener for the
// returned Mediator in a new goroutine. Cancelling ctx stops the
// Listener and closes any client connection. Start does not install
// the Mediator process-wide; see Initialize.
func Start(ctx context.Context, config Config) (*Mediator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bridge config: %w", err)
	}
	config = config.withDefaults()

	mediator, err := newMediator(config)
	if err != nil {
		return nil, err
	}

	tcp, err := net.Listen("tcp", config.ListenAddress)
	if err != nil {
		mediator.metrics.unregister(config.Registerer)
		return nil, fmt.Errorf("listening on %s: %w", config.ListenAddress, err)
	}
	mediator.addr = tcp.Addr()

	mediator.listener = newListener(config, tcp, mediator)
	go func() {
		mediator.runErr = mediator.listener.Run(ctx)
		close(mediator.done)
	}()
	return mediator, nil
}

// newMediator builds the queues, metrics, and logger. config must
// already have its defaults applied.
func newMediator(config Config) (*Mediator, error) {
	mediator := &Mediator{
		outbound: make(chan OutboundEvent, config.OutboundCapacity),
		inbound:  make(chan InboundEvent, config.InboundCapacity),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
		clock:    config.Clock,
	}

	metrics, err := newMetrics(config.Registerer, func() float64 { return float64(len(mediator.inbound)) })
	if err != nil {
		return nil, fmt.Errorf("registering bridge metrics: %w", err)
	}
	mediator.metrics = metrics

	mediator.logger = slog.New(newLogHandler(config.LocalHandler, config.Level, config.DefaultTarget, mediator.forwardLog))
	return mediator, nil
}

// SendEvent queues event for the Listener. It returns ErrQueueFull if
// the outbound queue is at capacity and ErrClosed once the Mediator is
// closed. It never blocks.
func (m *Mediator) SendEvent(event OutboundEvent) error {
	if event == nil {
		return errors.New("bridge: nil event")
	}
	select {
	case <-m.closed:
		return ErrClosed
	case <-m.done:
		return ErrClosed
	default:
	}
	select {
	case m.outbound <- event:
		return nil
	default:
		m.metrics.queueRejections.Inc()
		return ErrQueueFull
	}
}

// SendEvents queues events in order and stops at the first failure,
// returning it. Events before the failure stay queued.
func (m *Mediator) SendEvents(events []OutboundEvent) error {
	for index, event := range events {
		if err := m.SendEvent(event); err != nil {
			return fmt.Errorf("event %d of %d: %w", index+1, len(events), err)
		}
	}
	return nil
}

// PollEvents queues a PollTick, then returns every inbound event
// currently waiting. If the outbound queue is full the tick is skipped
// and counted; the Listener is already busy and a later call will tick
// it. After Close no tick is sent.
func (m *Mediator) PollEvents() []InboundEvent {
	if err := m.SendEvent(PollTick{}); errors.Is(err, ErrQueueFull) {
		m.metrics.dropped(dropPollTick)
	}

	var events []InboundEvent
	for {
		select {
		case event := <-m.inbound:
			events = append(events, event)
		default:
			return events
		}
	}
}

// Logger returns a logger whose records are echoed to the local
// handler and forwarded to the client.
func (m *Mediator) Logger() *slog.Logger { return m.logger }

// Addr returns the address the Listener is bound to.
func (m *Mediator) Addr() net.Addr { return m.addr }

// Metrics returns the bridge's collectors.
func (m *Mediator) Metrics() *Metrics { return m.metrics }

// Close tells the Listener that no more events will be sent. The
// Listener delivers what is already queued, logs that client
// communication is no longer possible, and exits with
// ErrMediatorClosed. Close does not wait; use Wait.
func (m *Mediator) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

// Done is closed when the Listener has exited.
func (m *Mediator) Done() <-chan struct{} { return m.done }

// Wait blocks until the Listener exits and returns its exit error:
// ErrMediatorClosed after Close, or the context's error after
// cancellation.
func (m *Mediator) Wait() error {
	<-m.done
	return m.runErr
}

// forwardLog is the log handler's sink. It drops the record when the
// queue is full.
func (m *Mediator) forwardLog(event LogEvent) {
	if err := m.SendEvent(event); err != nil {
		m.metrics.dropped(dropLogHandler)
	}
}
