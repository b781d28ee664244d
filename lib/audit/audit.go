// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
)

// Kind classifies an audit event.
type Kind string

const (
	KindConnection Kind = "CONNECTION"
	KindAuth       Kind = "AUTH"
	KindMenu       Kind = "MENU"
	KindProcess    Kind = "PROCESS"
	KindSearch     Kind = "SEARCH"
	KindFile       Kind = "FILE"
)

// Event is one audit record. Actor is the authenticated identity, or
// empty before login.
type Event struct {
	Kind    Kind
	Actor   string
	Remote  string
	Action  string
	Detail  string
	Success bool
}

// Sink receives audit events. Record must not block the session for
// long and never fails; sinks log their own write errors.
type Sink interface {
	Record(Event)
}

// Connection returns a CONNECTION event for action "connect" or
// "disconnect".
func Connection(remote, action string) Event {
	return Event{Kind: KindConnection, Remote: remote, Action: action, Success: true}
}

// Auth returns an AUTH event for a signup or login attempt.
func Auth(remote, actor, action string, success bool, detail string) Event {
	return Event{Kind: KindAuth, Actor: actor, Remote: remote, Action: action, Detail: detail, Success: success}
}

// Menu returns a MENU event for a menu selection.
func Menu(remote, actor, menu, choice string) Event {
	return Event{Kind: KindMenu, Actor: actor, Remote: remote, Action: menu, Detail: choice, Success: true}
}

// Process returns a PROCESS event for a processing run.
func Process(remote, actor string, success bool, detail string) Event {
	return Event{Kind: KindProcess, Actor: actor, Remote: remote, Action: "process", Detail: detail, Success: success}
}

// Search returns a SEARCH event for a report lookup.
func Search(remote, actor, action, term string, found bool) Event {
	return Event{Kind: KindSearch, Actor: actor, Remote: remote, Action: action, Detail: term, Success: found}
}

// File returns a FILE event for a report display and transfer.
func File(remote, actor, name string, success bool) Event {
	return Event{Kind: KindFile, Actor: actor, Remote: remote, Action: "transfer", Detail: name, Success: success}
}

// FileSink appends events as JSON lines to a file.
type FileSink struct {
	file   *os.File
	logger *slog.Logger
}

// OpenFile opens (creating if needed) the audit file at path in append
// mode.
func OpenFile(path string) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &FileSink{
		file:   file,
		logger: slog.New(slog.NewJSONHandler(file, nil)),
	}, nil
}

// Record appends the event. Failed attempts are written at warn level.
func (s *FileSink) Record(event Event) {
	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(context.Background(), level, string(event.Kind),
		slog.String("actor", event.Actor),
		slog.String("remote", event.Remote),
		slog.String("action", event.Action),
		slog.String("detail", event.Detail),
		slog.Bool("success", event.Success),
	)
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	return s.file.Close()
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(Event) {}

// Memory is a Sink that keeps events in order.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) Record(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns a copy of the recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

// Kinds returns the events recorded with the given kind.
func (m *Memory) Kinds(kind Kind) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Event
	for _, event := range m.events {
		if event.Kind == kind {
			matched = append(matched, event)
		}
	}
	return matched
}
