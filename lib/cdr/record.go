// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cdr

import "strings"

// FieldCount is the number of pipe-separated fields in a record line.
const FieldCount = 9

// Type is a classified record type.
type Type int

const (
	// Unknown is any tag that does not match a known type.
	Unknown Type = iota
	OutgoingCall
	IncomingCall
	OutgoingSMS
	IncomingSMS
	Data
)

var tags = map[string]Type{
	"MOC":    OutgoingCall,
	"MTC":    IncomingCall,
	"SMS-MO": OutgoingSMS,
	"SMS-MT": IncomingSMS,
	"GPRS":   Data,
}

// String returns the canonical tag, or "UNKNOWN".
func (t Type) String() string {
	for tag, candidate := range tags {
		if candidate == t {
			return tag
		}
	}
	return "UNKNOWN"
}

// TagMatch selects how record type tags are compared.
type TagMatch int

const (
	// MatchExact requires the tag to equal the canonical upper-case
	// spelling.
	MatchExact TagMatch = iota

	// MatchFold compares tags case-insensitively.
	MatchFold
)

// ParseTagMatch converts a configuration value ("exact" or "fold").
func ParseTagMatch(value string) (TagMatch, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "exact":
		return MatchExact, true
	case "fold":
		return MatchFold, true
	}
	return MatchExact, false
}

func (m TagMatch) String() string {
	if m == MatchFold {
		return "fold"
	}
	return "exact"
}

// Classify maps a raw tag to its Type under the given matching mode.
func Classify(tag string, match TagMatch) Type {
	if match == MatchFold {
		tag = strings.ToUpper(tag)
	}
	return tags[tag]
}

// Record is one parsed CDR line.
type Record struct {
	SubscriberID    int64
	OperatorName    string
	OperatorCode    string
	Tag             string
	Duration        float64
	Download        float64
	Upload          float64
	CounterpartID   int64
	CounterpartCode string
}

// SameOperator reports whether the counterpart belongs to the
// subscriber's own operator.
func (r Record) SameOperator() bool {
	return r.OperatorCode == r.CounterpartCode
}
