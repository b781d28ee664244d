// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bureau-foundation/cdrbill/lib/netutil"
)

// ConnHandler serves one connection. It must return when ctx is
// cancelled or the connection fails; the server closes conn after the
// handler returns.
type ConnHandler func(ctx context.Context, conn net.Conn)

// ConnServer dispatches accepted connections to a handler, one
// goroutine per connection.
type ConnServer struct {
	listener net.Listener
	handler  ConnHandler
	logger   *slog.Logger

	// IdleTimeout closes a connection whose peer sends nothing for
	// this long. Zero disables the timeout.
	IdleTimeout time.Duration

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool

	// activeConnections tracks running handlers so Serve can wait for
	// them before returning.
	activeConnections sync.WaitGroup
}

// NewConnServer creates a server that accepts from listener. Call
// Serve to start accepting.
func NewConnServer(listener net.Listener, handler ConnHandler, logger *slog.Logger) *ConnServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ConnServer{
		listener: listener,
		handler:  handler,
		logger:   logger,
		conns:    make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed, then closes live connections and waits for their handlers.
func (s *ConnServer) Serve(ctx context.Context) error {
	// Unblock Accept when the context is cancelled.
	stop := context.AfterFunc(ctx, func() {
		s.listener.Close()
	})
	defer stop()

	s.logger.Info("server listening", "address", s.listener.Addr().String())

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}
		if !s.track(conn) {
			conn.Close()
			break
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.serveConnection(ctx, conn)
		}()
	}

	s.closeAll()
	s.activeConnections.Wait()
	s.logger.Info("server stopped")
	return nil
}

// Active returns the number of connections currently being served.
func (s *ConnServer) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *ConnServer) serveConnection(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	logger := s.logger.With("remote", remote)

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("session panicked",
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
		}
		s.untrack(conn)
		if err := conn.Close(); err != nil && !netutil.IsExpectedCloseError(err) {
			logger.Debug("closing connection", "error", err)
		}
	}()

	var served net.Conn = conn
	if s.IdleTimeout > 0 {
		served = &idleConn{Conn: conn, timeout: s.IdleTimeout}
	}
	s.handler(ctx, served)
}

func (s *ConnServer) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *ConnServer) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// closeAll stops tracking new connections and closes the live ones so
// handlers blocked in Read return.
func (s *ConnServer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for conn := range s.conns {
		conn.Close()
	}
}

// idleConn extends the read deadline before every Read.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}
