// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens zombiezen.com/go/sqlite connection pools
// with reliquery's standard pragmas.
//
// The relic catalog runs on a private in-memory database
// ([MemoryPath]); the pool then holds exactly one connection, and
// holding it is what serializes catalog operations. File-backed pools
// are used by the CLI's --cache flag to persist the catalog between
// runs and get WAL journaling with NORMAL synchronous.
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   sqlitepool.MemoryPath,
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//
// The package exposes zombiezen's types directly. Callers write SQL,
// use sqlitex.Execute for cached statements, and manage transactions
// with sqlitex.ImmediateTransaction.
package sqlitepool
