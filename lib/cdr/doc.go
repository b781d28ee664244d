// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cdr models Call Detail Records and parses the pipe-delimited
// source file the billing engines consume.
//
// Each non-empty line carries nine fields:
//
//	subscriber|operator name|operator code|type|duration|download|upload|counterpart id|counterpart code
//
// Two parsers exist because the two billing views tolerate different
// inputs. ParseStrict rejects any line whose numeric fields do not
// parse; the customer view uses it. ParseLenient only requires the
// field count and a non-empty operator code, reading each numeric
// field as its leading integer (0 when there is none); the operator
// view uses it and reports integral totals.
//
// Record type tags are classified by Classify, either exactly (MOC,
// MTC, SMS-MO, SMS-MT, GPRS) or case-insensitively.
package cdr
