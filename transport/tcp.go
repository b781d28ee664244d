// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
	"time"
)

// Compile-time interface checks.
var (
	_ Listener = (*TCPListener)(nil)
	_ Dialer   = (*TCPDialer)(nil)
)

// DefaultKeepAlive is the keep-alive period set on accepted and dialed
// connections.
const DefaultKeepAlive = 30 * time.Second

// TCPListener accepts inbound TCP connections.
type TCPListener struct {
	listener  *net.TCPListener
	keepAlive time.Duration
}

// NewTCPListener listens on address (e.g. ":12345" or
// "127.0.0.1:0" for a random port).
func NewTCPListener(address string) (*TCPListener, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &TCPListener{
		listener:  listener.(*net.TCPListener),
		keepAlive: DefaultKeepAlive,
	}, nil
}

// Accept waits for the next connection and enables keep-alive on it.
func (l *TCPListener) Accept() (net.Conn, error) {
	conn, err := l.listener.AcceptTCP()
	if err != nil {
		return nil, err
	}
	conn.SetKeepAliveConfig(net.KeepAliveConfig{
		Enable:   true,
		Idle:     l.keepAlive,
		Interval: l.keepAlive,
		Count:    3,
	})
	return conn, nil
}

// Addr returns the listener's network address.
func (l *TCPListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Address returns the TCP address in "host:port" format.
func (l *TCPListener) Address() string {
	return l.listener.Addr().String()
}

// Close stops accepting connections. Connections already accepted are
// unaffected.
func (l *TCPListener) Close() error {
	return l.listener.Close()
}

// TCPDialer opens TCP connections to the billing server.
type TCPDialer struct {
	// Timeout bounds connection establishment. Zero means only the
	// context deadline applies.
	Timeout time.Duration
}

// DialContext opens a TCP connection to address (host:port).
func (d *TCPDialer) DialContext(ctx context.Context, address string) (net.Conn, error) {
	return (&net.Dialer{Timeout: d.Timeout, KeepAlive: DefaultKeepAlive}).DialContext(ctx, "tcp", address)
}
