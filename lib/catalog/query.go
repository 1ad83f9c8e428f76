// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Rows is the materialized result of an ad-hoc query. Each row holds
// one value per column: int64, float64, string, []byte, or nil.
type Rows struct {
	Columns []string `json:"columns"`
	Values  [][]any  `json:"rows"`
}

// Len returns the number of result rows.
func (r Rows) Len() int { return len(r.Values) }

// Records returns each row as a column-name keyed map.
func (r Rows) Records() []map[string]any {
	records := make([]map[string]any, 0, len(r.Values))
	for _, row := range r.Values {
		record := make(map[string]any, len(r.Columns))
		for i, column := range r.Columns {
			record[column] = row[i]
		}
		records = append(records, record)
	}
	return records
}

// Query executes one read-only SQL statement against the cache and
// returns its complete result. The statement runs with query_only
// set, so INSERT, UPDATE, DELETE and DDL fail with the engine's error
// and the cache stays as the last sync left it.
//
// Positional parameters (?) bind from args, which may hold nil,
// bool, int, int64, float64, string, or []byte values.
func (c *Catalog) Query(ctx context.Context, statement string, args ...any) (Rows, error) {
	var rows Rows
	err := c.withConn(ctx, "query", func(conn *sqlite.Conn) (err error) {
		if err := sqlitex.ExecuteTransient(conn, "PRAGMA query_only=ON", nil); err != nil {
			return fmt.Errorf("catalog: query: %w", err)
		}
		defer func() {
			if resetErr := sqlitex.ExecuteTransient(conn, "PRAGMA query_only=OFF", nil); resetErr != nil && err == nil {
				err = fmt.Errorf("catalog: query: %w", resetErr)
			}
		}()

		stmt, trailing, err := conn.PrepareTransient(statement)
		if err != nil {
			return fmt.Errorf("catalog: query: %w", err)
		}
		if stmt == nil {
			return fmt.Errorf("catalog: query: empty statement")
		}
		defer stmt.Finalize()

		if strings.TrimSpace(statement[len(statement)-trailing:]) != "" {
			return fmt.Errorf("catalog: query: only one statement may be executed at a time")
		}
		if err := bindArgs(stmt, args); err != nil {
			return err
		}

		columnCount := stmt.ColumnCount()
		rows.Columns = make([]string, columnCount)
		for i := range columnCount {
			rows.Columns[i] = stmt.ColumnName(i)
		}

		for {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("catalog: query: %w", err)
			}
			hasRow, err := stmt.Step()
			if err != nil {
				return fmt.Errorf("catalog: query: %w", err)
			}
			if !hasRow {
				return nil
			}
			row := make([]any, columnCount)
			for i := range columnCount {
				row[i] = columnValue(stmt, i)
			}
			rows.Values = append(rows.Values, row)
		}
	})
	if err != nil {
		return Rows{}, err
	}
	return rows, nil
}

func columnValue(stmt *sqlite.Stmt, column int) any {
	switch stmt.ColumnType(column) {
	case sqlite.TypeInteger:
		return stmt.ColumnInt64(column)
	case sqlite.TypeFloat:
		return stmt.ColumnFloat(column)
	case sqlite.TypeText:
		return stmt.ColumnText(column)
	case sqlite.TypeBlob:
		data := make([]byte, stmt.ColumnLen(column))
		stmt.ColumnBytes(column, data)
		return data
	default:
		return nil
	}
}

func bindArgs(stmt *sqlite.Stmt, args []any) error {
	if len(args) != stmt.BindParamCount() {
		return fmt.Errorf("catalog: query: statement has %d parameters, got %d arguments",
			stmt.BindParamCount(), len(args))
	}
	for i, arg := range args {
		param := i + 1
		switch value := arg.(type) {
		case nil:
			stmt.BindNull(param)
		case bool:
			stmt.BindBool(param, value)
		case int:
			stmt.BindInt64(param, int64(value))
		case int64:
			stmt.BindInt64(param, value)
		case float64:
			stmt.BindFloat(param, value)
		case string:
			stmt.BindText(param, value)
		case []byte:
			stmt.BindBytes(param, value)
		default:
			return fmt.Errorf("catalog: query: argument %d has unsupported type %T", param, arg)
		}
	}
	return nil
}
