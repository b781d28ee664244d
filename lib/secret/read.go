// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ReadFromPath reads a secret from a file, trimming surrounding
// whitespace. It returns ErrEmpty if nothing remains.
func ReadFromPath(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defer Zero(data)

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return NewFromBytes(trimmed)
}

// ReadPassword reads one line from the terminal fd with echo disabled.
// It returns ErrEmpty when the user enters nothing.
func ReadPassword(fd int) (*Buffer, error) {
	data, err := term.ReadPassword(fd)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return NewFromBytes(data)
}
