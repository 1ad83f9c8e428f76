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

const relicColumns = "id, relic_name, relic_type, storage_name, last_modified"

func scanRelic(stmt *sqlite.Stmt) schema.RelicData {
	return schema.RelicData{
		ID:           stmt.ColumnInt64(0),
		Name:         stmt.ColumnText(1),
		Type:         stmt.ColumnText(2),
		StorageName:  stmt.ColumnText(3),
		LastModified: stmt.ColumnText(4),
	}
}

// SyncRelicData registers candidate if no relic with the same
// (name, type, storage) exists and returns the stored identity either
// way. An existing identity keeps its id and timestamp. A candidate
// without LastModified is stamped with the current time.
func (c *Catalog) SyncRelicData(ctx context.Context, candidate schema.RelicData) (schema.RelicData, error) {
	if candidate.Name == "" || candidate.Type == "" || candidate.StorageName == "" {
		return schema.RelicData{}, fmt.Errorf("catalog: sync relic: name, type, and storage are required (got %q, %q, %q)",
			candidate.Name, candidate.Type, candidate.StorageName)
	}

	var stored schema.RelicData
	err := c.withTransaction(ctx, "sync relic", func(conn *sqlite.Conn) error {
		existing, found, err := relicByName(conn, candidate.Name, candidate.Type, candidate.StorageName)
		if err != nil {
			return err
		}
		if found {
			stored = existing
			return nil
		}

		stored = candidate
		if stored.LastModified == "" {
			stored.LastModified = c.now()
		}
		err = sqlitex.Execute(conn,
			`INSERT INTO relics (relic_name, relic_type, storage_name, last_modified) VALUES (?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{stored.Name, stored.Type, stored.StorageName, stored.LastModified}})
		if err != nil {
			return fmt.Errorf("catalog: insert relic %s/%s@%s: %w", stored.Type, stored.Name, stored.StorageName, err)
		}
		stored.ID = conn.LastInsertRowID()
		return nil
	})
	if err != nil {
		return schema.RelicData{}, err
	}
	return stored, nil
}

// RelicDataByName looks up an identity by its natural key.
func (c *Catalog) RelicDataByName(ctx context.Context, name, relicType, storageName string) (schema.RelicData, bool, error) {
	var (
		relic schema.RelicData
		found bool
	)
	err := c.withConn(ctx, "relic by name", func(conn *sqlite.Conn) error {
		var err error
		relic, found, err = relicByName(conn, name, relicType, storageName)
		return err
	})
	return relic, found, err
}

// RelicDataByID looks up an identity by surrogate id.
func (c *Catalog) RelicDataByID(ctx context.Context, id int64) (schema.RelicData, bool, error) {
	var (
		relic schema.RelicData
		found bool
	)
	err := c.withConn(ctx, "relic by id", func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT `+relicColumns+` FROM relics WHERE id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{id},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					relic = scanRelic(stmt)
					found = true
					return nil
				},
			})
	})
	if err != nil {
		return schema.RelicData{}, false, fmt.Errorf("catalog: relic by id %d: %w", id, err)
	}
	return relic, found, nil
}

func relicByName(conn *sqlite.Conn, name, relicType, storageName string) (schema.RelicData, bool, error) {
	var (
		relic schema.RelicData
		found bool
	)
	err := sqlitex.Execute(conn,
		`SELECT `+relicColumns+` FROM relics WHERE relic_name = ? AND relic_type = ? AND storage_name = ?`,
		&sqlitex.ExecOptions{
			Args: []any{name, relicType, storageName},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				relic = scanRelic(stmt)
				found = true
				return nil
			},
		})
	if err != nil {
		return schema.RelicData{}, false, fmt.Errorf("catalog: relic %s/%s@%s: %w", relicType, name, storageName, err)
	}
	return relic, found, nil
}

// DeleteRelic removes the identity with the given id together with
// every metadata record and tag attached to it. Returns the number of
// identities removed (0 or 1).
func (c *Catalog) DeleteRelic(ctx context.Context, id int64) (int, error) {
	var removed int
	err := c.withTransaction(ctx, "delete relic", func(conn *sqlite.Conn) error {
		var err error
		removed, err = deleteRelic(conn, id)
		return err
	})
	return removed, err
}

func deleteRelic(conn *sqlite.Conn, id int64) (int, error) {
	for _, statement := range []string{
		`DELETE FROM tags WHERE relic_id = ?`,
		`DELETE FROM metadata WHERE relic_id = ?`,
	} {
		if err := sqlitex.Execute(conn, statement, &sqlitex.ExecOptions{Args: []any{id}}); err != nil {
			return 0, fmt.Errorf("catalog: delete relic %d: %w", id, err)
		}
	}
	if err := sqlitex.Execute(conn, `DELETE FROM relics WHERE id = ?`, &sqlitex.ExecOptions{Args: []any{id}}); err != nil {
		return 0, fmt.Errorf("catalog: delete relic %d: %w", id, err)
	}
	return conn.Changes(), nil
}

// PurgeRelics deletes every identity whose id is not in keep,
// cascading to metadata and tags. Returns the number of identities
// removed.
func (c *Catalog) PurgeRelics(ctx context.Context, keep map[int64]struct{}) (int, error) {
	purged := 0
	err := c.withTransaction(ctx, "purge relics", func(conn *sqlite.Conn) error {
		var stale []int64
		err := sqlitex.Execute(conn, `SELECT id FROM relics`, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id := stmt.ColumnInt64(0)
				if _, ok := keep[id]; !ok {
					stale = append(stale, id)
				}
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("catalog: purge relics: %w", err)
		}
		for _, id := range stale {
			removed, err := deleteRelic(conn, id)
			if err != nil {
				return err
			}
			purged += removed
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		c.logger.Info("purged stale relics", "count", purged)
	}
	return purged, nil
}

// RelicIDsByStorage returns the ids of every identity registered for
// one backend.
func (c *Catalog) RelicIDsByStorage(ctx context.Context, storageName string) ([]int64, error) {
	var ids []int64
	err := c.withConn(ctx, "relic ids by storage", func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT id FROM relics WHERE storage_name = ? ORDER BY id`,
			&sqlitex.ExecOptions{
				Args: []any{storageName},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					ids = append(ids, stmt.ColumnInt64(0))
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: relic ids for %s: %w", storageName, err)
	}
	return ids, nil
}
