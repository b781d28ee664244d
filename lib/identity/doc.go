// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity validates, registers, and authenticates the email
// and password pairs that open a billing session.
//
// Credentials live in a SQLite database (see lib/sqlitepool). Passwords
// are never stored: each row holds an argon2id hash, its random salt,
// and the cost parameters used, so costs can be raised later without
// invalidating existing accounts. Email addresses are stored in
// canonical (trimmed, lower-case) form.
package identity
