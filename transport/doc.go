// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides the TCP listener the billing server
// accepts sessions on and the dialer the client connects with.
//
// The listener enables TCP keep-alive on accepted connections so that
// sessions whose client vanished without closing (laptop lid, dropped
// VPN) are eventually torn down by the kernel instead of holding a
// session goroutine forever.
package transport
