// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/The-Dev-Effect/reliquery/lib/schema"
)

// TypeStorage is one distinct (relic type, storage name) combination.
type TypeStorage struct {
	Type        string `json:"relic_type"`
	StorageName string `json:"storage_name"`
}

// RelicsByTag returns the distinct identities carrying key=value,
// ordered by id.
func (c *Catalog) RelicsByTag(ctx context.Context, key, value string) ([]schema.RelicData, error) {
	return c.selectRelics(ctx, "relics by tag",
		`SELECT DISTINCT r.id, r.relic_name, r.relic_type, r.storage_name, r.last_modified
		 FROM relics r JOIN tags t ON t.relic_id = r.id
		 WHERE t.tag_key = ? AND t.tag_value = ?
		 ORDER BY r.id`,
		key, value)
}

// Relics returns every identity ordered by storage, type, then name.
func (c *Catalog) Relics(ctx context.Context) ([]schema.RelicData, error) {
	return c.selectRelics(ctx, "relics",
		`SELECT `+relicColumns+` FROM relics ORDER BY storage_name, relic_type, relic_name`)
}

// RelicTypesByStorage returns the distinct relic types registered for
// one backend, sorted.
func (c *Catalog) RelicTypesByStorage(ctx context.Context, storageName string) ([]string, error) {
	return c.selectStrings(ctx, "relic types by storage",
		`SELECT DISTINCT relic_type FROM relics WHERE storage_name = ? ORDER BY relic_type`,
		storageName)
}

// RelicNamesByStorageAndType returns the names of relics of one type
// on one backend, sorted.
func (c *Catalog) RelicNamesByStorageAndType(ctx context.Context, storageName, relicType string) ([]string, error) {
	return c.selectStrings(ctx, "relic names by storage and type",
		`SELECT relic_name FROM relics WHERE storage_name = ? AND relic_type = ? ORDER BY relic_name`,
		storageName, relicType)
}

// UniqueRelicTypesAndStorages returns each distinct (type, storage)
// combination, sorted by storage then type.
func (c *Catalog) UniqueRelicTypesAndStorages(ctx context.Context) ([]TypeStorage, error) {
	var combinations []TypeStorage
	err := c.withConn(ctx, "types and storages", func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT DISTINCT relic_type, storage_name FROM relics ORDER BY storage_name, relic_type`,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					combinations = append(combinations, TypeStorage{
						Type:        stmt.ColumnText(0),
						StorageName: stmt.ColumnText(1),
					})
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: types and storages: %w", err)
	}
	return combinations, nil
}

func (c *Catalog) selectRelics(ctx context.Context, op, query string, args ...any) ([]schema.RelicData, error) {
	var relics []schema.RelicData
	err := c.withConn(ctx, op, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				relics = append(relics, scanRelic(stmt))
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", op, err)
	}
	return relics, nil
}

func (c *Catalog) selectStrings(ctx context.Context, op, query string, args ...any) ([]string, error) {
	var values []string
	err := c.withConn(ctx, op, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				values = append(values, stmt.ColumnText(0))
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", op, err)
	}
	return values, nil
}
