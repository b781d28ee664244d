// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
)

// Listener accepts inbound session connections. It is a net.Listener
// that can also report its bound address as a string.
type Listener interface {
	net.Listener

	// Address returns the bound address in "host:port" form. With a
	// ":0" listen address this reports the port actually chosen.
	Address() string
}

// Dialer opens outbound session connections.
type Dialer interface {
	DialContext(ctx context.Context, address string) (net.Conn, error)
}
