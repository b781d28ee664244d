// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength = 16
	keyLength  = 32
)

// Params are argon2id cost parameters.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultParams follow the RFC 9106 second recommended option scaled
// for an interactive login.
var DefaultParams = Params{Time: 3, Memory: 64 * 1024, Threads: 4}

type passwordHash struct {
	params Params
	salt   []byte
	key    []byte
}

func newPasswordHash(password string, params Params) (passwordHash, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return passwordHash{}, fmt.Errorf("generating salt: %w", err)
	}
	return passwordHash{
		params: params,
		salt:   salt,
		key:    derive(password, salt, params),
	}, nil
}

func derive(password string, salt []byte, params Params) []byte {
	return argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, keyLength)
}

// matches reports whether password produces the stored key, in
// constant time.
func (h passwordHash) matches(password string) bool {
	candidate := derive(password, h.salt, h.params)
	return subtle.ConstantTimeCompare(candidate, h.key) == 1
}
