// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// MemoryPath opens a private in-memory database. A pool opened with
// this path always has exactly one connection.
const MemoryPath = ":memory:"

// memoryDatabases numbers in-memory databases so that each pool gets
// its own shared-cache name.
var memoryDatabases atomic.Uint64

// memoryURI names a fresh in-memory database. sqlitex refuses the
// bare ":memory:" path, so in-memory pools open a uniquely named
// shared-cache URI instead.
func memoryURI() string {
	return fmt.Sprintf("file:reliquery-%d?mode=memory&cache=shared", memoryDatabases.Add(1))
}

// Config holds the parameters for opening a SQLite connection pool.
type Config struct {
	// Path is the database file path, or MemoryPath. The parent
	// directory of a file path must exist.
	Path string

	// PoolSize is the number of connections. Ignored (forced to 1)
	// for MemoryPath. Defaults to max(runtime.NumCPU(), 4).
	PoolSize int

	// Logger receives pool open/close messages. Nil discards them.
	Logger *slog.Logger

	// OnConnect runs once per connection after the standard pragmas:
	// schema creation, additional pragmas. An error discards the
	// connection and is returned from Take.
	OnConnect func(conn *sqlite.Conn) error
}

// Pool is a fixed-size pool of SQLite connections with reliquery's
// standard pragmas. It wraps sqlitex.Pool and exposes the same
// Take/Put API.
//
// Pool is safe for concurrent use; connections are not. With a single
// connection, Take doubles as the database's mutual-exclusion lock:
// whoever holds the connection owns the database.
type Pool struct {
	inner    *sqlitex.Pool
	logger   *slog.Logger
	path     string
	size     int
	inMemory bool
}

// Open creates a new connection pool. Connections are initialized
// lazily on first Take. The caller must call Close.
func Open(cfg Config) (*Pool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitepool: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	inMemory := cfg.Path == MemoryPath
	uri := cfg.Path
	poolSize := cfg.PoolSize
	var flags sqlite.OpenFlags
	switch {
	case inMemory:
		uri = memoryURI()
		poolSize = 1
		// WAL has no meaning in memory.
		flags = sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenURI
	case poolSize <= 0:
		poolSize = max(runtime.NumCPU(), 4)
	}

	inner, err := sqlitex.NewPool(uri, sqlitex.PoolOptions{
		Flags:    flags,
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			return prepareConnection(conn, inMemory, cfg.OnConnect)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: opening %s: %w", cfg.Path, err)
	}

	logger.Debug("sqlite pool opened",
		"path", uri,
		"pool_size", poolSize,
	)

	return &Pool{
		inner:    inner,
		logger:   logger,
		path:     uri,
		size:     poolSize,
		inMemory: inMemory,
	}, nil
}

// Size returns the number of connections in the pool.
func (p *Pool) Size() int { return p.size }

// InMemory reports whether the pool holds a private in-memory database.
func (p *Pool) InMemory() bool { return p.inMemory }

// Take borrows a connection, blocking until one is free or ctx is
// done. The caller must Put it back:
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

// Put returns a connection to the pool. Safe to call with nil.
func (p *Pool) Put(conn *sqlite.Conn) {
	p.inner.Put(conn)
}

// Close closes all connections, blocking until borrowed connections
// are returned. An in-memory database is discarded.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("sqlite pool close error",
			"path", p.path,
			"error", err,
		)
		return fmt.Errorf("sqlitepool: closing %s: %w", p.path, err)
	}
	p.logger.Debug("sqlite pool closed", "path", p.path)
	return nil
}

// filePragmas apply to on-disk databases only. WAL and mmap have no
// meaning for an in-memory database.
var filePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA mmap_size=268435456",
}

// commonPragmas apply to every connection. Foreign keys stay off: the
// catalog cascades relic deletion explicitly.
var commonPragmas = []string{
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=OFF",
	"PRAGMA cache_size=-8192",
	"PRAGMA temp_store=MEMORY",
}

func prepareConnection(conn *sqlite.Conn, inMemory bool, onConnect func(*sqlite.Conn) error) error {
	var pragmas []string
	if !inMemory {
		pragmas = append(pragmas, filePragmas...)
	}
	pragmas = append(pragmas, commonPragmas...)

	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitepool: %s: %w", pragma, err)
		}
	}

	if onConnect != nil {
		if err := onConnect(conn); err != nil {
			return fmt.Errorf("sqlitepool: OnConnect: %w", err)
		}
	}
	return nil
}
