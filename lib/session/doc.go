// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session drives one client connection through the billing
// menus.
//
// A [Session] is a finite state machine over a [lineproto.Conn]. Each
// state has a handler that sends its menu, reads one choice, performs
// the selected action through the collaborators in [Dependencies], and
// returns the next state. Unrecognized input re-prompts the same
// state. Entry to the print and search menu is guarded: it requires a
// successful processing run in this session and both report files in
// the identity's workspace.
//
// Searches and displays end the session after responding. End of
// stream in any state ends the session quietly; other transport
// errors are returned from [Session.Run] for the dispatcher to log.
package session
