// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/robolink/lib/clock"
	"github.com/bureau-foundation/robolink/lib/codec"
	"github.com/bureau-foundation/robolink/lib/framing"
	"github.com/bureau-foundation/robolink/lib/netutil"
	"github.com/bureau-foundation/robolink/lib/packet"
)

// Backoff bounds for reconnecting. The delay starts at
// InitialBackoff, doubles after each failed attempt, and is capped at
// MaxBackoff. A successful handshake resets it.
const (
	DefaultInitialBackoff = 250 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second
	DefaultDialTimeout    = 5 * time.Second
	DefaultPacketBuffer   = 256
)

// ErrNotConnected is returned by Send when no connection is open.
var ErrNotConnected = errors.New("monitor: not connected to a robot")

// Options configures a Client.
type Options struct {
	// Address is the robot's bridge address, host:port. Required.
	Address string

	// Name is sent to the robot in ClientInfo. Required.
	Name string

	// Clock drives the reconnect backoff. Default clock.Real().
	Clock clock.Clock

	// Logger receives connection lifecycle messages. Default
	// slog.Default().
	Logger *slog.Logger

	// InitialBackoff and MaxBackoff bound the reconnect delay.
	// Defaults DefaultInitialBackoff and DefaultMaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// DialTimeout bounds each connection attempt. Default
	// DefaultDialTimeout.
	DialTimeout time.Duration

	// MaxFrameSize bounds frames read from the robot. Default
	// framing.DefaultMaxFrameSize.
	MaxFrameSize int

	// PacketBuffer is the capacity of the Packets channel. When it is
	// full the reader stops reading, and TCP flow control pushes back
	// on the robot. Default DefaultPacketBuffer.
	PacketBuffer int
}

// Client is a reconnecting connection to one robot.
type Client struct {
	address        string
	name           string
	clock          clock.Clock
	logger         *slog.Logger
	initialBackoff time.Duration
	maxBackoff     time.Duration
	dialTimeout    time.Duration
	maxFrameSize   int

	packets chan packet.Outbound

	// writeMu serializes writes and guards conn.
	writeMu sync.Mutex
	conn    net.Conn
}

// New validates options and returns a Client. Call Run to connect.
func New(options Options) (*Client, error) {
	if options.Address == "" {
		return nil, errors.New("monitor: address is required")
	}
	if options.Name == "" {
		return nil, errors.New("monitor: client name is required")
	}
	client := &Client{
		address:        options.Address,
		name:           options.Name,
		clock:          options.Clock,
		logger:         options.Logger,
		initialBackoff: options.InitialBackoff,
		maxBackoff:     options.MaxBackoff,
		dialTimeout:    options.DialTimeout,
		maxFrameSize:   options.MaxFrameSize,
	}
	if client.clock == nil {
		client.clock = clock.Real()
	}
	if client.logger == nil {
		client.logger = slog.Default()
	}
	if client.initialBackoff <= 0 {
		client.initialBackoff = DefaultInitialBackoff
	}
	if client.maxBackoff <= 0 {
		client.maxBackoff = DefaultMaxBackoff
	}
	if client.maxBackoff < client.initialBackoff {
		return nil, fmt.Errorf("monitor: max backoff %v is below initial backoff %v", client.maxBackoff, client.initialBackoff)
	}
	if client.dialTimeout <= 0 {
		client.dialTimeout = DefaultDialTimeout
	}
	if client.maxFrameSize <= 0 {
		client.maxFrameSize = framing.DefaultMaxFrameSize
	}
	bufferSize := options.PacketBuffer
	if bufferSize <= 0 {
		bufferSize = DefaultPacketBuffer
	}
	client.packets = make(chan packet.Outbound, bufferSize)
	client.logger = client.logger.With("robot_address", client.address)
	return client, nil
}

// Packets delivers every packet received from the robot, in order.
// Each connection starts with a RobotInfo. The channel is never
// closed.
func (c *Client) Packets() <-chan packet.Outbound { return c.packets }

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn != nil
}

// Send writes one packet to the robot. It returns ErrNotConnected when
// no connection is open; the packet is not queued for a later one.
func (c *Client) Send(outgoing packet.Inbound) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return framing.Send(c.conn, outgoing, packet.EncodeInbound)
}

// Ping asks the robot application to answer with a Pong.
func (c *Client) Ping() error { return c.Send(packet.Ping{}) }

// RequestLogs asks the robot for every log record no session has
// received yet.
func (c *Client) RequestLogs() error { return c.Send(packet.RequestLogs{}) }

// SendPath uploads a path payload (see lib/path).
func (c *Client) SendPath(payload codec.RawMessage) error {
	return c.Send(packet.Path{Payload: payload})
}

// Run connects and reconnects until ctx is cancelled, then returns
// ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	backoff := c.initialBackoff
	for {
		handshaken, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if handshaken {
			backoff = c.initialBackoff
		}
		if netutil.IsExpectedCloseError(err) {
			c.logger.Warn("robot closed the connection, reconnecting", "retry_in", backoff)
		} else {
			c.logger.Warn("robot connection failed, reconnecting", "error", err, "retry_in", backoff)
		}

		select {
		case <-c.clock.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

// session runs one connection: dial, identify, then read until the
// connection fails. It reports whether the robot's RobotInfo arrived.
func (c *Client) session(ctx context.Context) (bool, error) {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return false, err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer c.detach(conn)

	c.writeMu.Lock()
	c.conn = conn
	err = framing.Send[packet.Inbound](conn, packet.ClientInfo{Name: c.name}, packet.EncodeInbound)
	c.writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("sending ClientInfo: %w", err)
	}

	// identified is set by the first packet; handshaken only by a
	// RobotInfo, which may come late from a misbehaving robot.
	identified, handshaken := false, false
	for {
		received, err := framing.Receive(conn, c.maxFrameSize, packet.DecodeOutbound)
		if err != nil {
			return handshaken, err
		}
		info, isInfo := received.(packet.RobotInfo)
		if !identified && !isInfo {
			c.logger.Warn("robot did not send RobotInfo first", "first_packet", received.OutboundTag().String())
		}
		identified = true
		if isInfo && !handshaken {
			handshaken = true
			c.logger.Info("connected to robot", "robot", info.Name)
		}
		select {
		case c.packets <- received:
		case <-ctx.Done():
			return handshaken, ctx.Err()
		}
	}
}

func (c *Client) detach(conn net.Conn) {
	c.writeMu.Lock()
	c.conn = nil
	c.writeMu.Unlock()
	conn.Close()
}
