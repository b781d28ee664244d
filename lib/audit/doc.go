// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit records security-relevant session events: connections,
// authentication attempts, menu navigation, processing runs, searches,
// and file transfers.
//
// The trail is write-only from the server's point of view. [FileSink]
// appends one JSON object per event to a file; [Discard] drops events;
// [Memory] keeps them for tests. All sinks are safe for concurrent use
// by many sessions.
package audit
