// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bureau-foundation/cdrbill/lib/secret"
)

// Input supplies the user's answers to prompts. ReadPassword returns
// a nil buffer for an empty answer.
type Input interface {
	ReadLine() (string, error)
	ReadPassword() (*secret.Buffer, error)
}

// StreamInput reads answers from a line stream. When the stream is a
// terminal, passwords are read with echo disabled.
type StreamInput struct {
	reader   *bufio.Reader
	fd       int
	terminal bool

	// PasswordFile, if set, answers every password prompt instead
	// of the stream.
	PasswordFile string
}

// NewStreamInput reads from file, detecting whether it is a terminal.
func NewStreamInput(file *os.File) *StreamInput {
	fd := int(file.Fd())
	return &StreamInput{
		reader:   bufio.NewReader(file),
		fd:       fd,
		terminal: term.IsTerminal(fd),
	}
}

// NewReaderInput reads from a non-terminal reader.
func NewReaderInput(r io.Reader) *StreamInput {
	return &StreamInput{reader: bufio.NewReader(r), fd: -1}
}

// ReadLine returns the next line without its terminator. A final
// unterminated line is returned before io.EOF.
func (s *StreamInput) ReadLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadPassword reads a password from PasswordFile, the terminal with
// echo off, or the next stream line.
func (s *StreamInput) ReadPassword() (*secret.Buffer, error) {
	var (
		buffer *secret.Buffer
		err    error
	)
	switch {
	case s.PasswordFile != "":
		buffer, err = secret.ReadFromPath(s.PasswordFile)
	case s.terminal:
		buffer, err = secret.ReadPassword(s.fd)
	default:
		var line []byte
		line, err = s.reader.ReadBytes('\n')
		if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
			secret.Zero(line)
			return nil, err
		}
		trimmed := line
		for len(trimmed) > 0 && (trimmed[len(trimmed)-1] == '\n' || trimmed[len(trimmed)-1] == '\r') {
			trimmed = trimmed[:len(trimmed)-1]
		}
		buffer, err = secret.NewFromBytes(trimmed)
		secret.Zero(line)
	}
	if errors.Is(err, secret.ErrEmpty) {
		return nil, nil
	}
	return buffer, err
}
