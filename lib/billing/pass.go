// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrSourceUnavailable is returned by a pass whose CDR source cannot
// be opened. No report is written.
var ErrSourceUnavailable = errors.New("CDR source unavailable")

// cancelCheckInterval is how many lines a pass reads between context
// checks.
const cancelCheckInterval = 1024

// ParseStats counts how a pass treated the source lines.
type ParseStats struct {
	// Lines is the number of non-empty lines read.
	Lines int `cbor:"lines"`

	// Accepted lines were parsed and applied to an aggregate.
	Accepted int `cbor:"accepted"`

	// Skipped lines were malformed and ignored.
	Skipped int `cbor:"skipped"`

	// Unclassified lines parsed but carried an unrecognised type tag.
	// They count toward Accepted (the aggregate exists) but add no
	// usage.
	Unclassified int `cbor:"unclassified"`
}

// PassResult describes a completed pass.
type PassResult struct {
	Stats      ParseStats
	Aggregates int
	Report     string
}

// Pass is one aggregation over a CDR source that writes one report.
type Pass interface {
	// Name is the human-readable pass name used in notifications.
	Name() string

	// Run aggregates source and atomically replaces report.
	Run(ctx context.Context, source, report string) (PassResult, error)
}

func openSource(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return file, nil
}

// writeFileAtomic writes a file through a temporary sibling and renames
// it over path once write succeeds.
func writeFileAtomic(path string, write func(w *bufio.Writer) error) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	temporary, err := os.CreateTemp(directory, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary report: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			temporary.Close()
			os.Remove(temporary.Name())
		}
	}()

	buffered := bufio.NewWriter(temporary)
	if err := write(buffered); err != nil {
		return err
	}
	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := temporary.Chmod(0o644); err != nil {
		return fmt.Errorf("setting report permissions: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(temporary.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	committed = true
	return nil
}

// checkCanceled returns ctx.Err() every cancelCheckInterval lines.
func checkCanceled(ctx context.Context, lines int) error {
	if lines%cancelCheckInterval == 0 {
		return ctx.Err()
	}
	return nil
}

// errWriter records the first write error so report formatting can
// issue many Fprintf calls and check once.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
