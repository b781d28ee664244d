// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package billing aggregates a CDR source file into the two billing
// reports and coordinates running both passes concurrently.
//
// The customer pass ([CustomerEngine]) groups records by subscriber and
// splits voice and SMS usage by whether the counterpart belongs to the
// subscriber's own operator. It writes CB.txt. The operator pass
// ([OperatorEngine]) groups records by operator code and writes
// IOSB.txt with integral totals.
//
// Every pass builds a fresh in-memory table, so concurrent passes,
// including passes from different sessions, never share aggregate
// state. Aggregates are written sorted by key and reports are replaced
// atomically (temporary file then rename), so a reader sees either the
// previous report or the complete new one, and two runs over the same
// source produce byte-identical output.
//
// [Coordinator.Process] starts both passes, joins both even when one
// fails to start, writes a CBOR [Manifest] describing the run, and
// reports progress through a [Notifier].
package billing
