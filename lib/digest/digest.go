// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes BLAKE3 keyed digests of generated report
// files. The key separates report digests from any other BLAKE3 use of
// the same bytes.
package digest

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// String returns the lowercase hex encoding.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// reportDomainKey is the ASCII domain name zero-padded to 32 bytes.
// Changing it invalidates every recorded digest.
var reportDomainKey = [32]byte{
	'c', 'd', 'r', 'b', 'i', 'l', 'l', '.', 'r', 'e', 'p', 'o', 'r', 't',
}

// Reader digests everything read from r and returns the hash and the
// byte count.
func Reader(r io.Reader) (Hash, int64, error) {
	hasher, err := blake3.NewKeyed(reportDomainKey[:])
	if err != nil {
		return Hash{}, 0, fmt.Errorf("creating keyed hasher: %w", err)
	}
	n, err := io.Copy(hasher, r)
	if err != nil {
		return Hash{}, n, err
	}
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash, n, nil
}

// File digests the file at path.
func File(path string) (Hash, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return Hash{}, 0, err
	}
	defer file.Close()
	hash, n, err := Reader(file)
	if err != nil {
		return Hash{}, n, fmt.Errorf("digesting %s: %w", path, err)
	}
	return hash, n, nil
}

// Parse decodes a hex digest as produced by Hash.String.
func Parse(text string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(text)
	if err != nil {
		return hash, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != len(hash) {
		return hash, fmt.Errorf("parsing digest: got %d bytes, want %d", len(decoded), len(hash))
	}
	copy(hash[:], decoded)
	return hash, nil
}
