// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/cdrbill/lib/clock"
	"github.com/bureau-foundation/cdrbill/lib/sqlitepool"
)

// ErrDuplicateIdentity is returned by Register for an email that
// already has an account.
var ErrDuplicateIdentity = errors.New("identity already registered")

// ErrInvalidCredentials is returned by Register for an email or
// password that fails validation.
var ErrInvalidCredentials = errors.New("invalid email or password")

var migrations = []string{
	`CREATE TABLE identities (
		email         TEXT PRIMARY KEY,
		hash          BLOB NOT NULL,
		salt          BLOB NOT NULL,
		argon_time    INTEGER NOT NULL,
		argon_memory  INTEGER NOT NULL,
		argon_threads INTEGER NOT NULL,
		created_at    INTEGER NOT NULL
	) WITHOUT ROWID;`,
}

// StoreConfig configures OpenStore.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string

	// Params are the argon2id costs for new accounts. Zero uses
	// DefaultParams.
	Params Params

	Clock  clock.Clock
	Logger *slog.Logger
}

// Store is the SQLite-backed credential store. It is safe for
// concurrent use by many sessions.
type Store struct {
	pool   *sqlitepool.Pool
	params Params
	clock  clock.Clock
	logger *slog.Logger

	// decoy is verified against when an email is unknown so that a
	// failed login costs the same whether or not the account exists.
	decoy passwordHash
}

// OpenStore opens (creating if necessary) the credential database.
func OpenStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	params := cfg.Params
	if params == (Params{}) {
		params = DefaultParams
	}
	store := &Store{
		params: params,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
	if store.clock == nil {
		store.clock = clock.Real()
	}
	if store.logger == nil {
		store.logger = slog.New(slog.DiscardHandler)
	}

	decoy, err := newPasswordHash("decoy", params)
	if err != nil {
		return nil, err
	}
	store.decoy = decoy

	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
		Path:       cfg.Path,
		Logger:     store.logger,
		Migrations: migrations,
	})
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	store.pool = pool
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Register creates an account. It returns ErrInvalidCredentials if
// either value fails validation and ErrDuplicateIdentity if the email
// is taken.
func (s *Store) Register(ctx context.Context, email, password string) error {
	if !ValidEmail(email) || !ValidPassword(password) {
		return ErrInvalidCredentials
	}
	email = Canonical(email)

	hash, err := newPasswordHash(password, s.params)
	if err != nil {
		return err
	}

	inserted := false
	err = s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO identities (email, hash, salt, argon_time, argon_memory, argon_threads, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (email) DO NOTHING`,
			&sqlitex.ExecOptions{
				Args: []any{
					email, hash.key, hash.salt,
					int64(hash.params.Time), int64(hash.params.Memory), int64(hash.params.Threads),
					s.clock.Now().Unix(),
				},
			})
		inserted = conn.Changes() == 1
		return err
	})
	if err != nil {
		return fmt.Errorf("registering %s: %w", email, err)
	}
	if !inserted {
		return ErrDuplicateIdentity
	}
	s.logger.Info("identity registered", "email", email)
	return nil
}

// Authenticate reports whether password matches the account for
// email. An unknown email is not an error; it authenticates as false.
func (s *Store) Authenticate(ctx context.Context, email, password string) (bool, error) {
	email = Canonical(email)

	var stored *passwordHash
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT hash, salt, argon_time, argon_memory, argon_threads
			FROM identities WHERE email = ?`,
			&sqlitex.ExecOptions{
				Args: []any{email},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					stored = &passwordHash{
						key:  columnBytes(stmt, 0),
						salt: columnBytes(stmt, 1),
						params: Params{
							Time:    uint32(stmt.ColumnInt64(2)),
							Memory:  uint32(stmt.ColumnInt64(3)),
							Threads: uint8(stmt.ColumnInt64(4)),
						},
					}
					return nil
				},
			})
	})
	if err != nil {
		return false, fmt.Errorf("looking up %s: %w", email, err)
	}
	if stored == nil {
		s.decoy.matches(password)
		return false, nil
	}
	return stored.matches(password), nil
}

func columnBytes(stmt *sqlite.Stmt, column int) []byte {
	buffer := make([]byte, stmt.ColumnLen(column))
	stmt.ColumnBytes(column, buffer)
	return buffer
}
