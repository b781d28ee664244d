// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the scaffolding the billing server binary is
// assembled from: the connection dispatcher and the standard logger.
//
// [ConnServer] accepts connections from a listener and runs a handler
// for each on its own goroutine. Sessions are fully independent: a
// panic inside one handler is recovered, logged with its stack, and
// closes only that connection. Every accepted connection is closed
// exactly once when its handler returns. On shutdown (context
// cancellation) the listener is closed, live connections are closed to
// unblock their reads, and Serve returns after every handler has
// exited.
//
// The binary composes these pieces in its own main() rather than
// subclassing a framework.
package service
