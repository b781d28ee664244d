// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps passwords out of the Go heap.
//
// [Buffer] allocates memory via mmap(MAP_ANONYMOUS), locks it into RAM
// with mlock, and marks it MADV_DONTDUMP. Close zeros, unlocks, and
// unmaps it. [NewFromBytes] zeros its source after copying, so a
// password read from the terminal ([ReadPassword]) or a file
// ([ReadFromPath]) lives only in the locked region.
//
// Depends on golang.org/x/sys/unix and golang.org/x/term.
package secret
