// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/robolink/lib/clock"
	"github.com/bureau-foundation/robolink/lib/framing"
	"github.com/bureau-foundation/robolink/lib/netutil"
	"github.com/bureau-foundation/robolink/lib/packet"
	"github.com/bureau-foundation/robolink/lib/plot"
)

// Listener is the session actor. Run is the only code that reads or
// writes a client connection, the backlog, or the plot manager.
type Listener struct {
	tcp      net.Listener
	accepted chan net.Conn

	outbound <-chan OutboundEvent
	inbound  chan<- InboundEvent
	closed   <-chan struct{}

	robotName    string
	maxFrameSize int
	acceptRetry  time.Duration
	writeTimeout time.Duration
	clock        clock.Clock
	logger       *slog.Logger
	metrics      *Metrics

	backlog backlog
	plots   *plot.Manager
	session *session
}

// session is the state of one accepted connection.
type session struct {
	id     uuid.UUID
	conn   net.Conn
	pump   *framing.Pump[packet.Inbound]
	logger *slog.Logger

	// identified is set once the client's first packet has been seen,
	// whether or not it was a ClientInfo.
	identified bool
}

// newListener builds the actor for mediator. The Listener logs only to
// the local handler: its own diagnostics are not forwarded to the
// client, so they never enter the backlog they describe.
func newListener(config Config, tcp net.Listener, mediator *Mediator) *Listener {
	logger := slog.New(config.LocalHandler).With("component", "bridge")
	return &Listener{
		tcp:          tcp,
		accepted:     make(chan net.Conn),
		outbound:     mediator.outbound,
		inbound:      mediator.inbound,
		closed:       mediator.closed,
		robotName:    config.RobotName,
		maxFrameSize: config.MaxFrameSize,
		acceptRetry:  config.AcceptPollInterval,
		writeTimeout: config.WriteTimeout,
		clock:        config.Clock,
		logger:       logger,
		metrics:      mediator.metrics,
		plots: plot.NewManager(plot.Options{
			Clock:         config.Clock,
			Logger:        logger,
			BatchSize:     config.PlotBatchSize,
			FlushInterval: config.PlotFlushInterval,
		}),
	}
}

// Run serves clients until ctx is cancelled or the Mediator is closed.
// It returns ctx.Err() or ErrMediatorClosed.
func (l *Listener) Run(ctx context.Context) error {
	acceptCtx, cancelAccept := context.WithCancel(ctx)
	defer cancelAccept()
	defer l.tcp.Close()
	go l.acceptLoop(acceptCtx)

	l.logger.Info("listening for clients", "address", l.tcp.Addr().String(), "robot", l.robotName)

	for {
		if l.session == nil {
			select {
			case conn := <-l.accepted:
				l.connect(conn)
			case event := <-l.outbound:
				l.handleDisconnected(event)
			case <-l.closed:
				return l.shutdown()
			case <-ctx.Done():
				l.logger.Info("listener stopped", "reason", ctx.Err())
				return ctx.Err()
			}
			continue
		}

		select {
		case event := <-l.outbound:
			l.handleConnected(event)
		case <-l.closed:
			return l.shutdown()
		case <-ctx.Done():
			l.session.conn.Close()
			l.session = nil
			l.metrics.connected.Set(0)
			l.logger.Info("listener stopped", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// acceptLoop blocks in Accept and hands each connection to Run. While a
// session is active the hand-off blocks, so the next client waits.
func (l *Listener) acceptLoop(ctx context.Context) {
	for {
		conn, err := l.tcp.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("accept failed, retrying", "error", err, "retry_in", l.acceptRetry)
			select {
			case <-l.clock.After(l.acceptRetry):
			case <-ctx.Done():
				return
			}
			continue
		}
		select {
		case l.accepted <- conn:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

// shutdown handles the Mediator being closed: everything already
// queued is delivered, then the Listener stops for good.
func (l *Listener) shutdown() error {
drain:
	for {
		select {
		case event := <-l.outbound:
			if l.session == nil {
				l.handleDisconnected(event)
			} else {
				l.handleConnected(event)
			}
		default:
			break drain
		}
	}
	if l.session != nil {
		l.session.conn.Close()
		l.session = nil
		l.metrics.connected.Set(0)
	}
	l.logger.Error("mediator closed, communication with clients is permanently impossible")
	return ErrMediatorClosed
}

func (l *Listener) connect(conn net.Conn) {
	id := uuid.New()
	l.session = &session{
		id:     id,
		conn:   conn,
		pump:   framing.NewPump(conn, packet.DecodeInbound, framing.PumpOptions{MaxFrameSize: l.maxFrameSize}),
		logger: l.logger.With("session", id.String(), "remote", conn.RemoteAddr().String()),
	}
	l.metrics.sessions.Inc()
	l.metrics.connected.Set(1)
	l.session.logger.Info("client connected")

	if err := l.send(packet.RobotInfo{Name: l.robotName}); err != nil {
		l.disconnect(err)
	}
}

// disconnect ends the session after an I/O, encode, or decode failure.
// The backlog cursor and plot state carry over to the next session.
func (l *Listener) disconnect(cause error) {
	session := l.session
	if netutil.IsExpectedCloseError(cause) {
		session.logger.Warn("client disconnected since last packet")
	} else {
		session.logger.Warn("client disconnected since last packet", "error", cause)
	}
	session.conn.Close()
	l.session = nil
	l.metrics.disconnects.Inc()
	l.metrics.connected.Set(0)
}

// handleDisconnected keeps the queue moving while no client is
// attached. Logs are kept for the next client; samples keep
// accumulating, and batches that come due are discarded.
func (l *Listener) handleDisconnected(event OutboundEvent) {
	switch event := event.(type) {
	case LogEvent:
		l.appendLog(event.Record)
	case PointEvent:
		l.addPoint(event)
	case PollTick:
		for range l.plots.BuffersToSend() {
			l.metrics.dropped(dropNoClient)
		}
	default:
		l.metrics.dropped(dropNoClient)
		l.logger.Debug("no client connected, dropping event", "event", event.outboundEvent())
	}
}

func (l *Listener) handleConnected(event OutboundEvent) {
	err := l.dispatch(event)
	if err == nil {
		err = l.flushPlots()
	}
	if err != nil {
		l.disconnect(err)
	}
}

func (l *Listener) dispatch(event OutboundEvent) error {
	switch event := event.(type) {
	case LogEvent:
		l.appendLog(event.Record)
		return l.sendBacklog()
	case PongEvent:
		return l.send(packet.Pong{})
	case PathEvent:
		return l.send(packet.Path{Payload: event.Payload})
	case PointEvent:
		l.addPoint(event)
		return nil
	case PollTick:
		_, err := l.session.pump.ReceiveAvailable(l.handleInbound)
		return err
	default:
		l.logger.Error("unknown outbound event", "type", event)
		return nil
	}
}

// handleInbound is the pump handler for packets from the client.
func (l *Listener) handleInbound(_ io.Writer, received packet.Inbound) error {
	l.metrics.packetsReceived.WithLabelValues(received.InboundTag().String()).Inc()

	session := l.session
	if !session.identified {
		session.identified = true
		if _, ok := received.(packet.ClientInfo); !ok {
			session.logger.Warn("client did not send ClientInfo first", "first_packet", received.InboundTag().String())
		}
	}

	switch received := received.(type) {
	case packet.ClientInfo:
		session.logger.Info("connection established with client", "client", received.Name)
	case packet.Ping:
		l.deliver(PingEvent{})
	case packet.Path:
		l.deliver(PathEvent{Payload: received.Payload})
	case packet.RequestLogs:
		return l.sendBacklog()
	}
	return nil
}

// deliver passes an event to the application. A full inbound queue
// means the application has stopped polling; the event is dropped
// rather than stalling the socket.
func (l *Listener) deliver(event InboundEvent) {
	select {
	case l.inbound <- event:
	default:
		l.metrics.dropped(dropInbound)
		l.logger.Warn("inbound queue full, dropping event", "event", event.inboundEvent())
	}
}

func (l *Listener) appendLog(record packet.LogRecord) {
	l.backlog.append(record)
	l.metrics.backlogRecords.Set(float64(l.backlog.len()))
	l.metrics.backlogUnsent.Set(float64(len(l.backlog.unsent())))
}

func (l *Listener) sendBacklog() error {
	err := l.backlog.deliver(func(record packet.LogRecord) error {
		return l.send(packet.Log{Record: record})
	})
	l.metrics.backlogUnsent.Set(float64(len(l.backlog.unsent())))
	return err
}

func (l *Listener) addPoint(event PointEvent) {
	if err := l.plots.AddPoint(event.Series, event.Subseries, event.Sample, event.At); err != nil {
		l.metrics.rejectedSamples.Inc()
	}
}

func (l *Listener) flushPlots() error {
	for _, batch := range l.plots.BuffersToSend() {
		err := l.send(packet.PointBuffer{
			Series:    batch.Series,
			Subseries: batch.Subseries,
			Buffer:    batch.Buffer,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// send writes one packet to the current session.
func (l *Listener) send(outbound packet.Outbound) error {
	conn := l.session.conn
	if l.writeTimeout > 0 {
		// Socket deadlines are wall-clock; the injected clock may not be.
		if err := conn.SetWriteDeadline(time.Now().Add(l.writeTimeout)); err != nil {
			return err
		}
	}
	if err := framing.Send(conn, outbound, packet.EncodeOutbound); err != nil {
		return err
	}
	l.metrics.packetsSent.WithLabelValues(outbound.OutboundTag().String()).Inc()
	return nil
}
