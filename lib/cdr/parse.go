// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cdr

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrFieldCount is returned for lines without exactly FieldCount
// fields.
var ErrFieldCount = errors.New("wrong field count")

// FieldError reports a field that failed to parse.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

var errEmpty = errors.New("empty")

func split(line string) ([]string, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "|")
	if len(fields) != FieldCount {
		return nil, fmt.Errorf("%w: %d fields", ErrFieldCount, len(fields))
	}
	return fields, nil
}

// ParseStrict parses a line requiring every numeric field to be a
// valid number. The counterpart id may be empty, meaning 0. Operator
// name, operator code, and tag must be non-empty.
func ParseStrict(line string) (Record, error) {
	fields, err := split(line)
	if err != nil {
		return Record{}, err
	}

	var record Record
	var parseErr error
	integer := func(name, value string, allowEmpty bool) int64 {
		value = strings.TrimSpace(value)
		if value == "" && allowEmpty {
			return 0
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil && parseErr == nil {
			parseErr = &FieldError{Field: name, Value: value, Err: err}
		}
		return n
	}
	decimal := func(name, value string) float64 {
		value = strings.TrimSpace(value)
		f, err := strconv.ParseFloat(value, 64)
		if err != nil && parseErr == nil {
			parseErr = &FieldError{Field: name, Value: value, Err: err}
		}
		return f
	}
	text := func(name, value string) string {
		if value == "" && parseErr == nil {
			parseErr = &FieldError{Field: name, Value: value, Err: errEmpty}
		}
		return value
	}

	record.SubscriberID = integer("subscriber", fields[0], false)
	record.OperatorName = text("operator name", fields[1])
	record.OperatorCode = strconv.FormatInt(integer("operator code", fields[2], false), 10)
	record.Tag = text("type", fields[3])
	record.Duration = decimal("duration", fields[4])
	record.Download = decimal("download", fields[5])
	record.Upload = decimal("upload", fields[6])
	record.CounterpartID = integer("counterpart id", fields[7], true)
	record.CounterpartCode = strconv.FormatInt(integer("counterpart code", fields[8], false), 10)

	if parseErr != nil {
		return Record{}, parseErr
	}
	return record, nil
}

// ParseLenient parses a line accepting any numeric field text. Each
// numeric field becomes its leading integer, or 0. Only the operator
// code must be present.
func ParseLenient(line string) (Record, error) {
	fields, err := split(line)
	if err != nil {
		return Record{}, err
	}
	code := strings.TrimSpace(fields[2])
	if code == "" {
		return Record{}, &FieldError{Field: "operator code", Value: fields[2], Err: errEmpty}
	}
	return Record{
		SubscriberID:    LeadingInteger(fields[0]),
		OperatorName:    fields[1],
		OperatorCode:    code,
		Tag:             strings.TrimSpace(fields[3]),
		Duration:        float64(LeadingInteger(fields[4])),
		Download:        float64(LeadingInteger(fields[5])),
		Upload:          float64(LeadingInteger(fields[6])),
		CounterpartID:   LeadingInteger(fields[7]),
		CounterpartCode: strings.TrimSpace(fields[8]),
	}, nil
}

// LeadingInteger returns the integer formed by the optional sign and
// decimal digits at the start of value after leading whitespace, or 0.
// "120.5" yields 120; "abc" yields 0.
func LeadingInteger(value string) int64 {
	value = strings.TrimLeft(value, " \t")
	end := 0
	if end < len(value) && (value[end] == '-' || value[end] == '+') {
		end++
	}
	digits := end
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(value[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Lines calls fn for every non-empty line of source with its 1-based
// line number. It stops at the first error from fn or from reading.
func Lines(source io.Reader, fn func(number int, line string) error) error {
	reader := bufio.NewReader(source)
	number := 0
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			number++
			if trimmed := strings.TrimRight(line, "\r\n"); trimmed != "" {
				if fnErr := fn(number, trimmed); fnErr != nil {
					return fnErr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading line %d: %w", number+1, err)
		}
	}
}
