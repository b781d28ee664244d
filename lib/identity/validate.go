// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"strings"
	"unicode"
)

// Password length bounds.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 64
)

const maxEmailLength = 254

// Canonical returns the stored form of an email address.
func Canonical(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email has the shape local@domain.tld with
// conservative character sets on both sides.
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if len(email) < 6 || len(email) > maxEmailLength {
		return false
	}
	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" || strings.Contains(domain, "@") {
		return false
	}
	for _, r := range local {
		if !isAlphanumeric(r) && !strings.ContainsRune("._%+-", r) {
			return false
		}
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return false
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		for _, r := range label {
			if !isAlphanumeric(r) && r != '-' {
				return false
			}
		}
	}
	tld := labels[len(labels)-1]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// ValidPassword reports whether password is MinPasswordLength to
// MaxPasswordLength printable characters including at least one
// upper-case letter, one lower-case letter, one digit, and one other
// symbol. Spaces are not allowed.
func ValidPassword(password string) bool {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII || !unicode.IsPrint(r) || r == ' ':
			return false
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}

func isAlphanumeric(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
