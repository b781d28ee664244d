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

	"github.com/bureau-foundation/cdrbill/lib/cdr"
)

// CustomerReportHeader is the first line of the customer report.
const CustomerReportHeader = "#Customers Data Base:"

// CustomerRecordLines is the number of lines after a "Customer ID:"
// header that belong to the record, excluding the closing rule.
const CustomerRecordLines = 11

// RuleLine separates aggregates in both reports.
const RuleLine = "----------------------------------------"

// Usage holds voice and SMS totals for one side of the operator
// boundary.
type Usage struct {
	IncomingVoice float64
	OutgoingVoice float64
	IncomingSMS   int64
	OutgoingSMS   int64
}

// CustomerAggregate accumulates one subscriber's usage.
type CustomerAggregate struct {
	SubscriberID int64

	// OperatorName is the name from the subscriber's first record.
	OperatorName string

	// Within counts usage whose counterpart is on the same operator.
	Within Usage

	// Outside counts usage whose counterpart is on another operator.
	Outside Usage

	Download float64
	Upload   float64
}

// CustomerEngine aggregates records per subscriber.
type CustomerEngine struct {
	// TagMatch selects exact or case-insensitive type tag matching.
	TagMatch cdr.TagMatch

	Logger *slog.Logger
}

// Name implements Pass.
func (e *CustomerEngine) Name() string { return "Customer Billing" }

// Aggregate reads source into a fresh subscriber table. Malformed lines
// are counted and skipped.
func (e *CustomerEngine) Aggregate(ctx context.Context, source io.Reader) (map[int64]*CustomerAggregate, ParseStats, error) {
	table := make(map[int64]*CustomerAggregate)
	var stats ParseStats

	err := cdr.Lines(source, func(number int, line string) error {
		stats.Lines++
		if err := checkCanceled(ctx, stats.Lines); err != nil {
			return err
		}
		record, err := cdr.ParseStrict(line)
		if err != nil {
			stats.Skipped++
			e.logger().Debug("skipping malformed CDR line", "line", number, "error", err)
			return nil
		}
		stats.Accepted++

		aggregate := table[record.SubscriberID]
		if aggregate == nil {
			aggregate = &CustomerAggregate{
				SubscriberID: record.SubscriberID,
				OperatorName: record.OperatorName,
			}
			table[record.SubscriberID] = aggregate
		}

		usage := &aggregate.Outside
		if record.SameOperator() {
			usage = &aggregate.Within
		}
		switch cdr.Classify(record.Tag, e.TagMatch) {
		case cdr.OutgoingCall:
			usage.OutgoingVoice += record.Duration
		case cdr.IncomingCall:
			usage.IncomingVoice += record.Duration
		case cdr.OutgoingSMS:
			usage.OutgoingSMS++
		case cdr.IncomingSMS:
			usage.IncomingSMS++
		case cdr.Data:
			aggregate.Download += record.Download
			aggregate.Upload += record.Upload
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
func (e *CustomerEngine) Run(ctx context.Context, source, report string) (PassResult, error) {
	file, err := openSource(source)
	if err != nil {
		return PassResult{}, err
	}
	defer file.Close()

	table, stats, err := e.Aggregate(ctx, file)
	if err != nil {
		return PassResult{Stats: stats}, fmt.Errorf("aggregating customers: %w", err)
	}
	err = writeFileAtomic(report, func(w *bufio.Writer) error {
		return WriteCustomerReport(w, table)
	})
	if err != nil {
		return PassResult{Stats: stats}, err
	}
	e.logger().Info("customer report written",
		"report", report,
		"customers", len(table),
		"accepted", stats.Accepted,
		"skipped", stats.Skipped,
	)
	return PassResult{Stats: stats, Aggregates: len(table), Report: report}, nil
}

// WriteCustomerReport writes the customer report, subscribers in
// ascending id order.
func WriteCustomerReport(w io.Writer, table map[int64]*CustomerAggregate) error {
	ids := make([]int64, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := &errWriter{w: w}
	out.printf("%s\n", CustomerReportHeader)
	for _, id := range ids {
		aggregate := table[id]
		out.printf("Customer ID: %d (%s)\n", aggregate.SubscriberID, aggregate.OperatorName)
		out.printf("* Services within the mobile operator *\n")
		writeUsage(out, aggregate.Within)
		out.printf("* Services outside the mobile operator *\n")
		writeUsage(out, aggregate.Outside)
		out.printf("* Internet use * MB downloaded: %.2f | MB uploaded: %.2f\n", aggregate.Download, aggregate.Upload)
		out.printf("%s\n", RuleLine)
	}
	return out.err
}

func writeUsage(out *errWriter, usage Usage) {
	out.printf("Incoming voice call durations: %.2f\n", usage.IncomingVoice)
	out.printf("Outgoing voice call durations: %.2f\n", usage.OutgoingVoice)
	out.printf("Incoming SMS messages: %d\n", usage.IncomingSMS)
	out.printf("Outgoing SMS messages: %d\n", usage.OutgoingSMS)
}

func (e *CustomerEngine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}
