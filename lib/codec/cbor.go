// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"github.com/fxamacker/cbor/v2"
)

var (
	encoder = mustEncMode()
	decoder = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	options.Time = cbor.TimeRFC3339Nano
	mode, err := options.EncMode()
	if err != nil {
		panic("codec: building CBOR encoder: " + err.Error())
	}
	return mode
}

func mustDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{
		// Manifests from a newer server decode into an older struct.
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("codec: building CBOR decoder: " + err.Error())
	}
	return mode
}

// Marshal encodes v with Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encoder.Marshal(v)
}

// Unmarshal decodes data into v. Unknown fields are ignored; a map
// with a repeated key is rejected.
func Unmarshal(data []byte, v any) error {
	return decoder.Unmarshal(data, v)
}

// Diagnose renders data in CBOR diagnostic notation (RFC 8949 §8).
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
