// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// ParseLevel converts "debug", "info", "warn", or "error".
func ParseLevel(level string) (slog.Level, error) {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
	return parsed, nil
}

// NewLogger creates the process logger writing to stderr and installs
// it as the slog default. When stderr is a terminal the text handler is
// used for readability; otherwise JSON, for log collection.
func NewLogger(level slog.Level) *slog.Logger {
	logger := newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, terminal bool, level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if terminal {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}
