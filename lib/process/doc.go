// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the cdrbill
// binaries: reporting an error from run() before the structured logger
// exists, and mapping usage errors to a distinct exit status.
package process
