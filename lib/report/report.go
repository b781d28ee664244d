// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bureau-foundation/cdrbill/lib/billing"
	"github.com/bureau-foundation/cdrbill/lib/clock"
)

// Peer-visible text.
const (
	EndOfFileMarker  = "=== End of File ==="
	processFirstHint = "Note: Please process the CDR data first (option 1 from secondary menu)."
)

const maxReportLine = 1 << 20

// Sender is the outbound half of a session connection.
type Sender interface {
	SendLine(text string) error
	SendFile(name string, source io.Reader, size int64) error
	SendTransferError(name string) error
}

// Kind identifies one of the two reports.
type Kind int

const (
	Customer Kind = iota
	Operator
)

// FileName is the report's name inside a workspace.
func (k Kind) FileName() string {
	if k == Operator {
		return "IOSB.txt"
	}
	return "CB.txt"
}

// Title is the banner shown before a full dump.
func (k Kind) Title() string {
	if k == Operator {
		return "=== Interoperator Billing File Content ==="
	}
	return "=== Customer Billing File Content ==="
}

// Outcome classifies a lookup or dump.
type Outcome int

const (
	// Found means the record (or, for a dump, the file) was sent.
	Found Outcome = iota

	// NotFound means the report was scanned without a match.
	NotFound

	// Missing means the report could not be opened.
	Missing
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return "missing"
	}
}

// Streamer reads reports and sends them to a peer.
type Streamer struct {
	Clock clock.Clock

	// BatchLines is how many dump lines are sent between pauses.
	// Zero disables pacing.
	BatchLines int

	// BatchDelay is the pause after each batch.
	BatchDelay time.Duration

	Logger *slog.Logger
}

// SearchCustomer sends the first record for subscriber from the
// customer report at path.
func (s *Streamer) SearchCustomer(out Sender, path string, subscriber int64) (Outcome, error) {
	header := fmt.Sprintf("Customer ID: %d (", subscriber)
	outcome, err := s.sendRecord(out, path, billing.CustomerRecordLines, func(line string) bool {
		return strings.HasPrefix(line, header)
	})
	if err != nil || outcome != NotFound {
		return outcome, err
	}
	return NotFound, out.SendLine(fmt.Sprintf("Customer with MSISDN %d not found.", subscriber))
}

// SearchOperator sends the first operator record whose header contains
// pattern, compared case-insensitively.
func (s *Streamer) SearchOperator(out Sender, path, pattern string) (Outcome, error) {
	lowered := strings.ToLower(pattern)
	outcome, err := s.sendRecord(out, path, billing.OperatorRecordLines, func(line string) bool {
		line = strings.ToLower(line)
		return strings.Contains(line, "operator brand:") && strings.Contains(line, lowered)
	})
	if err != nil || outcome != NotFound {
		return outcome, err
	}
	return NotFound, out.SendLine(fmt.Sprintf("Operator '%s' not found.", pattern))
}

// sendRecord streams the first line satisfying match followed by up to
// detail further lines.
func (s *Streamer) sendRecord(out Sender, path string, detail int, match func(string) bool) (Outcome, error) {
	file, err := os.Open(path)
	if err != nil {
		return Missing, s.reportOpenFailure(out, path, err)
	}
	defer file.Close()

	scanner := newScanner(file)
	for scanner.Scan() {
		if !match(scanner.Text()) {
			continue
		}
		if err := out.SendLine(scanner.Text()); err != nil {
			return Found, err
		}
		for i := 0; i < detail && scanner.Scan(); i++ {
			if err := out.SendLine(scanner.Text()); err != nil {
				return Found, err
			}
		}
		return Found, nil
	}
	if err := scanner.Err(); err != nil {
		s.logger().Warn("reading report failed", "report", path, "error", err)
	}
	return NotFound, nil
}

// Display sends the full content of the report at path between its
// title and EndOfFileMarker, then transfers the file itself.
func (s *Streamer) Display(out Sender, kind Kind, path string) (Outcome, error) {
	file, err := os.Open(path)
	if err != nil {
		if sendErr := s.reportOpenFailure(out, path, err); sendErr != nil {
			return Missing, sendErr
		}
		return Missing, out.SendTransferError(kind.FileName())
	}
	defer file.Close()

	if err := out.SendLine(kind.Title()); err != nil {
		return Found, err
	}
	scanner := newScanner(file)
	sent := 0
	for scanner.Scan() {
		if err := out.SendLine(scanner.Text()); err != nil {
			return Found, err
		}
		sent++
		if s.BatchLines > 0 && sent%s.BatchLines == 0 {
			s.clock().Sleep(s.BatchDelay)
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger().Warn("reading report failed", "report", path, "error", err)
	}
	if err := out.SendLine(EndOfFileMarker); err != nil {
		return Found, err
	}

	info, err := file.Stat()
	if err == nil {
		_, err = file.Seek(0, io.SeekStart)
	}
	if err != nil {
		s.logger().Warn("preparing report transfer failed", "report", path, "error", err)
		return Found, out.SendTransferError(kind.FileName())
	}
	return Found, out.SendFile(kind.FileName(), file, info.Size())
}

func (s *Streamer) reportOpenFailure(out Sender, path string, err error) error {
	reason := "report unreadable"
	if errors.Is(err, fs.ErrNotExist) {
		reason = "report not found"
	}
	s.logger().Info("report unavailable", "report", path, "error", err)
	if sendErr := out.SendLine(fmt.Sprintf("Error opening file %s: %s", filepath.Base(path), reason)); sendErr != nil {
		return sendErr
	}
	return out.SendLine(processFirstHint)
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxReportLine)
	return scanner
}

func (s *Streamer) clock() clock.Clock {
	if s.Clock == nil {
		return clock.Real()
	}
	return s.Clock
}

func (s *Streamer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}
