// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration for on-disk state
// such as the per-workspace run manifest.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same logical value always produces identical bytes, so manifests of
// identical runs compare equal byte for byte. Timestamps encode as
// RFC 3339 text so Diagnose output stays readable.
//
//	data, err := codec.Marshal(manifest)
//	err = codec.Unmarshal(data, &manifest)
package codec
