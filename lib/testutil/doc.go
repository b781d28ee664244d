// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for cdrbill packages:
// channel receives with a timeout safety valve and fixture files.
package testutil
