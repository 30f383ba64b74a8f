// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"net"
	"testing"
	"time"
)

// ListenLoopback opens a TCP listener on an ephemeral 127.0.0.1 port.
// The listener is closed when the test completes.
func ListenLoopback(t testing.TB) net.Listener {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen on loopback: %v", err)
	}
	t.Cleanup(func() { listener.Close() })
	return listener
}

// ConnPair returns the two ends of an established loopback TCP
// connection. Both ends are closed when the test completes.
func ConnPair(t testing.TB) (client, server net.Conn) {
	t.Helper()
	listener := ListenLoopback(t)

	accepted := make(chan net.Conn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- conn
	}()

	client, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatalf("dial loopback: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case server = <-accepted:
	case err := <-acceptErr:
		t.Fatalf("accept loopback: %v", err)
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("timed out accepting loopback connection")
	}
	t.Cleanup(func() { server.Close() })
	return client, server
}

// Dial connects to addr over TCP, failing the test on error. The
// connection is closed when the test completes.
func Dial(t testing.TB, addr net.Addr) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), 5*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}
