// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Config holds the parameters for opening a pool.
type Config struct {
	// Path is the database file. The parent directory must exist.
	// ":memory:" requires PoolSize 1 since every in-memory connection
	// is a separate database.
	Path string

	// PoolSize is the number of connections. Defaults to 4.
	PoolSize int

	// Logger receives open/close/migration messages. Nil discards.
	Logger *slog.Logger

	// Migrations are schema scripts applied in order; see the package
	// documentation.
	Migrations []string
}

// Pool is a fixed-size pool of SQLite connections. Pool is safe for
// concurrent use; individual connections are not.
type Pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

// Open creates the pool, creating the database file if needed, and
// brings the schema up to date.
func Open(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitepool: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	inner, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			for _, pragma := range pragmas {
				if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
					return fmt.Errorf("sqlitepool: %s: %w", pragma, err)
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: opening %s: %w", cfg.Path, err)
	}

	pool := &Pool{inner: inner, logger: logger, path: cfg.Path}
	version, err := pool.migrate(ctx, cfg.Migrations)
	if err != nil {
		inner.Close()
		return nil, err
	}

	logger.Info("sqlite pool opened",
		"path", cfg.Path,
		"pool_size", poolSize,
		"schema_version", version,
	)
	return pool, nil
}

// Take borrows a connection. The caller must Put it back:
//
//	conn, err := pool.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Put(conn)
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: take: %w", err)
	}
	return conn, nil
}

// Put returns a connection to the pool. Nil is a no-op.
func (p *Pool) Put(conn *sqlite.Conn) {
	p.inner.Put(conn)
}

// Read runs fn with a borrowed connection.
func (p *Pool) Read(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := p.Take(ctx)
	if err != nil {
		return err
	}
	defer p.Put(conn)
	return fn(conn)
}

// Write runs fn inside an IMMEDIATE transaction, committing if fn
// returns nil and rolling back otherwise.
func (p *Pool) Write(ctx context.Context, fn func(conn *sqlite.Conn) error) (err error) {
	conn, err := p.Take(ctx)
	if err != nil {
		return err
	}
	defer p.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("sqlitepool: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	return fn(conn)
}

// Close closes every connection, blocking until borrowed connections
// are returned.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("sqlite pool close error", "path", p.path, "error", err)
		return fmt.Errorf("sqlitepool: closing %s: %w", p.path, err)
	}
	p.logger.Info("sqlite pool closed", "path", p.path)
	return nil
}

// SchemaVersion returns the stored PRAGMA user_version.
func SchemaVersion(conn *sqlite.Conn) (int, error) {
	version := 0
	err := sqlitex.ExecuteTransient(conn, "PRAGMA user_version", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			version = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("sqlitepool: reading schema version: %w", err)
	}
	return version, nil
}

func (p *Pool) migrate(ctx context.Context, migrations []string) (int, error) {
	version := 0
	err := p.Write(ctx, func(conn *sqlite.Conn) error {
		current, err := SchemaVersion(conn)
		if err != nil {
			return err
		}
		version = current
		if current > len(migrations) {
			return fmt.Errorf("sqlitepool: %s has schema version %d, newer than this binary (%d)", p.path, current, len(migrations))
		}
		for index := current; index < len(migrations); index++ {
			if err := sqlitex.ExecuteScript(conn, migrations[index], nil); err != nil {
				return fmt.Errorf("sqlitepool: migration %d: %w", index+1, err)
			}
			p.logger.Info("schema migration applied", "path", p.path, "version", index+1)
		}
		if len(migrations) > current {
			statement := fmt.Sprintf("PRAGMA user_version = %d", len(migrations))
			if err := sqlitex.ExecuteTransient(conn, statement, nil); err != nil {
				return fmt.Errorf("sqlitepool: recording schema version: %w", err)
			}
			version = len(migrations)
		}
		return nil
	})
	return version, err
}
