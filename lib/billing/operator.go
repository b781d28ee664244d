// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/bureau-foundation/cdrbill/lib/cdr"
)

// OperatorRecordLines is the number of lines after an "Operator
// Brand:" header that belong to the record, excluding the closing rule.
const OperatorRecordLines = 5

// unknownOperatorName is shown for operators whose records never carry
// a name.
const unknownOperatorName = "UNKNOWN"

// OperatorAggregate accumulates one operator's interconnect usage.
// Totals are integral: each numeric field contributes its leading
// integer.
type OperatorAggregate struct {
	Code string

	// Name is the first non-empty operator name seen for Code.
	Name string

	IncomingVoice int64
	OutgoingVoice int64
	IncomingSMS   int64
	OutgoingSMS   int64
	Download      int64
	Upload        int64
}

// OperatorEngine aggregates records per operator code. Type tags are
// always matched case-insensitively.
type OperatorEngine struct {
	Logger *slog.Logger
}

// Name implements Pass.
func (e *OperatorEngine) Name() string { return "Interoperator Billing" }

// Aggregate reads source into a fresh operator table.
func (e *OperatorEngine) Aggregate(ctx context.Context, source io.Reader) (map[string]*OperatorAggregate, ParseStats, error) {
	table := make(map[string]*OperatorAggregate)
	var stats ParseStats

	err := cdr.Lines(source, func(number int, line string) error {
		stats.Lines++
		if err := checkCanceled(ctx, stats.Lines); err != nil {
			return err
		}
		record, err := cdr.ParseLenient(line)
		if err != nil {
			stats.Skipped++
			e.logger().Debug("skipping malformed CDR line", "line", number, "error", err)
			return nil
		}
		stats.Accepted++

		aggregate := table[record.OperatorCode]
		if aggregate == nil {
			aggregate = &OperatorAggregate{Code: record.OperatorCode}
			table[record.OperatorCode] = aggregate
		}
		if aggregate.Name == "" {
			aggregate.Name = strings.TrimSpace(record.OperatorName)
		}

		switch cdr.Classify(record.Tag, cdr.MatchFold) {
		case cdr.OutgoingCall:
			aggregate.OutgoingVoice += int64(record.Duration)
		case cdr.IncomingCall:
			aggregate.IncomingVoice += int64(record.Duration)
		case cdr.OutgoingSMS:
			aggregate.OutgoingSMS++
		case cdr.IncomingSMS:
			aggregate.IncomingSMS++
		case cdr.Data:
			aggregate.Download += int64(record.Download)
			aggregate.Upload += int64(record.Upload)
		default:
			stats.Unclassified++
		}
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return table, stats, nil
}

// Run implements Pass.
func (e *OperatorEngine) Run(ctx context.Context, source, report string) (PassResult, error) {
	file, err := openSource(source)
	if err != nil {
		return PassResult{}, err
	}
	defer file.Close()

	table, stats, err := e.Aggregate(ctx, file)
	if err != nil {
		return PassResult{Stats: stats}, fmt.Errorf("aggregating operators: %w", err)
	}
	err = writeFileAtomic(report, func(w *bufio.Writer) error {
		return WriteOperatorReport(w, table)
	})
	if err != nil {
		return PassResult{Stats: stats}, err
	}
	e.logger().Info("operator report written",
		"report", report,
		"operators", len(table),
		"accepted", stats.Accepted,
		"skipped", stats.Skipped,
	)
	return PassResult{Stats: stats, Aggregates: len(table), Report: report}, nil
}

// WriteOperatorReport writes the interoperator report, operators in
// ascending code order.
func WriteOperatorReport(w io.Writer, table map[string]*OperatorAggregate) error {
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := &errWriter{w: w}
	for _, code := range codes {
		aggregate := table[code]
		name := aggregate.Name
		if name == "" {
			name = unknownOperatorName
		}
		out.printf("Operator Brand: %s (%s)\n", name, aggregate.Code)
		out.printf("\tIncoming voice call durations: %d\n", aggregate.IncomingVoice)
		out.printf("\tOutgoing voice call durations: %d\n", aggregate.OutgoingVoice)
		out.printf("\tIncoming SMS messages: %d\n", aggregate.IncomingSMS)
		out.printf("\tOutgoing SMS messages: %d\n", aggregate.OutgoingSMS)
		out.printf("\tMB Download: %d | MB Uploaded: %d\n", aggregate.Download, aggregate.Upload)
		out.printf("%s\n", RuleLine)
	}
	return out.err
}

func (e *OperatorEngine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}
