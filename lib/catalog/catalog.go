// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/The-Dev-Effect/reliquery/lib/clock"
	"github.com/The-Dev-Effect/reliquery/lib/schema"
	"github.com/The-Dev-Effect/reliquery/lib/sqlitepool"
)

const catalogSchema = `
CREATE TABLE IF NOT EXISTS relics (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	relic_name    TEXT NOT NULL,
	relic_type    TEXT NOT NULL,
	storage_name  TEXT NOT NULL,
	last_modified TEXT NOT NULL,
	UNIQUE (relic_name, relic_type, storage_name)
);

CREATE TABLE IF NOT EXISTS metadata (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	data_type     TEXT NOT NULL,
	relic_id      INTEGER NOT NULL,
	size          REAL,
	shape         TEXT,
	digest        TEXT,
	last_modified TEXT NOT NULL,
	UNIQUE (name, data_type, relic_id)
);

CREATE TABLE IF NOT EXISTS tags (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	relic_id  INTEGER NOT NULL,
	tag_key   TEXT NOT NULL,
	tag_value TEXT NOT NULL,
	created   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS tags_key_value ON tags (tag_key, tag_value);
CREATE INDEX IF NOT EXISTS tags_relic ON tags (relic_id);
CREATE INDEX IF NOT EXISTS metadata_relic ON metadata (relic_id);
`

// Catalog is the relational cache. Safe for concurrent use.
type Catalog struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// Config holds the parameters for opening a catalog.
type Config struct {
	// Path is the SQLite database location. Empty means a private
	// in-memory database, which is what the query façade uses.
	Path string

	// Clock stamps created and default last_modified values. Required.
	Clock clock.Clock

	// Logger receives operational messages. Required.
	Logger *slog.Logger
}

// Open creates the catalog and its tables.
func Open(ctx context.Context, cfg Config) (*Catalog, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("catalog: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("catalog: Logger is required")
	}

	path := cfg.Path
	if path == "" {
		path = sqlitepool.MemoryPath
	}

	// A file-backed catalog still uses one connection: the catalog
	// relies on connection ownership for atomicity.
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     path,
		PoolSize: 1,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, catalogSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	catalog := &Catalog{
		pool:   pool,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}

	// Take once so schema errors surface from Open rather than from
	// the first query.
	conn, err := pool.Take(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("catalog: initializing schema: %w", err)
	}
	pool.Put(conn)

	return catalog, nil
}

// Close releases the database. An in-memory catalog is discarded.
func (c *Catalog) Close() error {
	return c.pool.Close()
}

// now returns the current time in the backend timestamp layout.
func (c *Catalog) now() string {
	return schema.FormatTimestamp(c.clock.Now())
}

// withConn runs fn while holding the catalog's connection.
func (c *Catalog) withConn(ctx context.Context, op string, fn func(conn *sqlite.Conn) error) error {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("catalog: %s: %w", op, err)
	}
	defer c.pool.Put(conn)
	return fn(conn)
}

// withTransaction runs fn inside an IMMEDIATE transaction. The
// transaction rolls back if fn returns an error.
func (c *Catalog) withTransaction(ctx context.Context, op string, fn func(conn *sqlite.Conn) error) error {
	return c.withConn(ctx, op, func(conn *sqlite.Conn) (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return fmt.Errorf("catalog: %s: begin transaction: %w", op, err)
		}
		defer endTransaction(&err)
		return fn(conn)
	})
}
