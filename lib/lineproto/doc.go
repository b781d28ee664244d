// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package lineproto implements the newline-delimited text protocol
// spoken between the billing server and its clients, including the
// embedded binary file-transfer sub-protocol.
//
// Every message is a line of UTF-8 text terminated by '\n'. Carriage
// returns are discarded on receipt so CRLF clients interoperate.
// Lines longer than the configured bound are truncated at the bound
// and the remainder up to the newline is discarded, so an oversized
// line never bleeds into the next read.
//
// A file transfer is framed by text lines around a raw payload:
//
//	FILE_TRANSFER_START:<name>
//	FILE_SIZE:<decimal byte count>
//	<exactly that many raw bytes>
//	FILE_TRANSFER_COMPLETE
//
// If the sender cannot open the file it sends FILE_TRANSFER_ERROR in
// place of the size line and no payload follows. A receiver that
// cannot store the payload still consumes exactly the declared byte
// count so the stream stays aligned for the lines that follow.
//
// Writes retry a bounded number of times on transient errors
// (interrupted call, would-block, timeout) with a short pause taken
// from the injected clock. Any other write failure, including a
// closed peer, is returned to the caller, which ends the session.
//
// A Conn is used by a single goroutine; it performs no locking.
package lineproto
