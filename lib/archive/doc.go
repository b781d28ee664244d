// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive keeps previous generations of billing reports.
//
// Before a processing run overwrites CB.txt or IOSB.txt, [Rotator]
// copies the current file into the workspace's archive directory as
// <name>.<UTC timestamp><ext>, compressed with zstd or lz4 and, when
// recipients are configured, encrypted with age. Only the newest
// Keep generations of each report are retained. [Open] reverses the
// transform for inspection.
//
// File extensions carry the transform: ".zst" or ".lz4" for
// compression, then ".age" for encryption, so an archived file is
// self-describing.
package archive
