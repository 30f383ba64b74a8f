// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framing

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultProbeWindow is how long the deadline-based readiness probe
// waits for a byte on connections that do not expose a file
// descriptor.
const DefaultProbeWindow = time.Millisecond

// Handler receives each packet decoded by ReceiveAvailable. The writer
// is the pump's connection so the handler can reply in place. A
// non-nil return stops the pump and is returned unchanged.
type Handler[T any] func(w io.Writer, packet T) error

// PumpOptions configures a Pump. Zero values select the defaults.
type PumpOptions struct {
	// MaxFrameSize bounds accepted payloads. Default
	// DefaultMaxFrameSize.
	MaxFrameSize int

	// ProbeWindow applies only to connections without a file
	// descriptor (net.Pipe, wrapped connections). Default
	// DefaultProbeWindow.
	ProbeWindow time.Duration
}

// Pump drains frames from a connection without waiting for the peer.
// A Pump is not safe for concurrent use; it belongs to the goroutine
// that owns the connection.
type Pump[T any] struct {
	conn        net.Conn
	reader      *bufio.Reader
	decode      Decoder[T]
	raw         syscall.RawConn
	maxFrame    int
	probeWindow time.Duration
}

// NewPump returns a Pump reading from conn. All reads from conn must go
// through the Pump from then on: it buffers bytes it has already
// consumed from the socket.
func NewPump[T any](conn net.Conn, decode Decoder[T], options PumpOptions) *Pump[T] {
	pump := &Pump[T]{
		conn:        conn,
		reader:      bufio.NewReader(conn),
		decode:      decode,
		maxFrame:    options.MaxFrameSize,
		probeWindow: options.ProbeWindow,
	}
	if pump.maxFrame <= 0 {
		pump.maxFrame = DefaultMaxFrameSize
	}
	if pump.probeWindow <= 0 {
		pump.probeWindow = DefaultProbeWindow
	}
	if sc, ok := conn.(syscall.Conn); ok {
		if raw, err := sc.SyscallConn(); err == nil {
			pump.raw = raw
		}
	}
	return pump
}

// ReceiveAvailable delivers every frame whose length prefix has fully
// arrived, in order, and returns how many were delivered. A partial
// prefix stays buffered until a later call. Only the body of an
// announced frame may block. It returns nil once no
// further frame is waiting. It returns an *IOError if the peer has
// closed or the connection failed, a *DecodeError for an unusable
// frame, or the handler's error.
func (p *Pump[T]) ReceiveAvailable(handler Handler[T]) (int, error) {
	delivered := 0
	for {
		ready, err := p.ready()
		if err != nil {
			return delivered, &IOError{Op: "poll connection", Err: err}
		}
		if !ready {
			return delivered, nil
		}

		packet, err := Receive(p.reader, p.maxFrame, p.decode)
		if err != nil {
			return delivered, err
		}
		if err := handler(p.conn, packet); err != nil {
			return delivered, err
		}
		delivered++
	}
}

// ready reports whether a complete length prefix can be read without
// blocking. io.EOF means the peer closed the connection.
func (p *Pump[T]) ready() (bool, error) {
	buffered := p.reader.Buffered()
	if buffered >= HeaderSize {
		return true, nil
	}
	if p.raw != nil {
		return p.peekSocket(buffered)
	}
	return p.peekDeadline()
}

// peekSocket asks the kernel how much data is queued on the socket,
// without consuming it and without blocking. buffered counts prefix
// bytes the reader already holds.
func (p *Pump[T]) peekSocket(buffered int) (bool, error) {
	var (
		probe   [HeaderSize]byte
		n       int
		peekErr error
	)
	err := p.raw.Read(func(fd uintptr) bool {
		n, _, peekErr = unix.Recvfrom(int(fd), probe[:HeaderSize-buffered], unix.MSG_PEEK|unix.MSG_DONTWAIT)
		// Always report done: returning false would park the
		// goroutine until the socket becomes readable.
		return true
	})
	if err != nil {
		return false, err
	}

	switch {
	case peekErr == nil && buffered+n >= HeaderSize:
		return true, nil
	case peekErr == nil && n > 0:
		// Move the queued bytes into the reader so the next peek
		// sees what follows them, including a close.
		if _, err := p.reader.Peek(buffered + n); err != nil {
			return false, err
		}
		return false, nil
	case peekErr == nil:
		return false, io.EOF
	case errors.Is(peekErr, unix.EAGAIN), errors.Is(peekErr, unix.EWOULDBLOCK), errors.Is(peekErr, unix.EINTR):
		return false, nil
	default:
		return false, os.NewSyscallError("recvfrom", peekErr)
	}
}

// peekDeadline waits at most probeWindow for the rest of a length
// prefix. Bytes that arrive in time stay buffered in the reader.
func (p *Pump[T]) peekDeadline() (bool, error) {
	if err := p.conn.SetReadDeadline(time.Now().Add(p.probeWindow)); err != nil {
		return false, err
	}
	_, peekErr := p.reader.Peek(HeaderSize)
	if err := p.conn.SetReadDeadline(time.Time{}); err != nil {
		return false, err
	}

	if peekErr == nil {
		return true, nil
	}
	var netErr net.Error
	if errors.As(peekErr, &netErr) && netErr.Timeout() {
		return false, nil
	}
	return false, peekErr
}
