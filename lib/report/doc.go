// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package report serves generated billing reports to a session:
// single-record lookups and full dumps followed by a file transfer of
// the report itself.
//
// Lookups scan the report text and stream the first matching record
// (its header line plus the fixed number of detail lines the report
// layout defines). Dumps stream every line between a title and an
// end-of-file marker, pausing briefly after each batch of lines so a
// slow client is not flooded, then transfer the same open file so the
// dump and the transferred bytes come from one snapshot even if a
// concurrent processing run replaces the report.
//
// Only transport failures are returned as errors. A missing or
// unreadable report is explained to the peer and reported as
// [Missing].
package report
