// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool used for local
// structured storage such as the credential store.
//
// It wraps zombiezen.com/go/sqlite with production defaults: WAL
// journal mode, NORMAL synchronous, and a busy timeout so that
// concurrent signups from different sessions wait for the write lock
// instead of failing with SQLITE_BUSY.
//
// Schemas are versioned with PRAGMA user_version. [Config.Migrations]
// lists the scripts in order; Open applies every script whose index is
// at or above the stored version inside one IMMEDIATE transaction and
// records the new version. Migrations are append-only: never edit a
// released script, add a new one.
//
//	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
//	    Path:       "/var/lib/cdrbill/users.db",
//	    Logger:     logger,
//	    Migrations: []string{schemaV1},
//	})
//
// Callers borrow connections with [Pool.Take]/[Pool.Put] or run a
// function inside a write transaction with [Pool.Write].
package sqlitepool
