// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"iter"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/The-Dev-Effect/reliquery/lib/schema"
)

const metadataSelect = `
SELECT m.id, m.name, m.data_type, m.relic_id, m.size, m.shape, m.digest, m.last_modified,
       coalesce(r.relic_name, ''), coalesce(r.relic_type, '')
FROM metadata m LEFT JOIN relics r ON r.id = m.relic_id`

func scanMetadata(stmt *sqlite.Stmt) schema.Metadata {
	record := schema.Metadata{
		ID:           stmt.ColumnInt64(0),
		Name:         stmt.ColumnText(1),
		DataKind:     stmt.ColumnText(2),
		RelicID:      stmt.ColumnInt64(3),
		Digest:       stmt.ColumnText(6),
		LastModified: stmt.ColumnText(7),
		RelicName:    stmt.ColumnText(8),
		RelicType:    stmt.ColumnText(9),
	}
	if !stmt.ColumnIsNull(4) {
		record.Size = schema.Float(stmt.ColumnFloat(4))
	}
	if !stmt.ColumnIsNull(5) {
		record.Shape = schema.String(stmt.ColumnText(5))
	}
	return record
}

// nullable converts optional metadata fields into SQL arguments.
func nullable[T any](value *T) any {
	if value == nil {
		return nil
	}
	return *value
}

func optionalText(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// AddMetadata stores record. When a record with the same
// (name, data_type, relic_id) is already cached it is updated in
// place instead. Returns the stored record with its id.
func (c *Catalog) AddMetadata(ctx context.Context, record schema.Metadata) (schema.Metadata, error) {
	if err := record.Validate(); err != nil {
		return schema.Metadata{}, fmt.Errorf("catalog: add metadata: %w", err)
	}
	if record.RelicID == 0 {
		return schema.Metadata{}, fmt.Errorf("catalog: add metadata %q: relic id is required", record.Name)
	}
	var stored schema.Metadata
	err := c.withTransaction(ctx, "add metadata", func(conn *sqlite.Conn) error {
		_, found, err := metadataByName(conn, record.Name, record.DataKind, record.RelicID)
		if err != nil {
			return err
		}
		if found {
			_, err = updateMetadata(conn, record)
		} else {
			_, err = insertMetadata(conn, record)
		}
		if err != nil {
			return err
		}
		stored, _, err = metadataByName(conn, record.Name, record.DataKind, record.RelicID)
		return err
	})
	if err != nil {
		return schema.Metadata{}, err
	}
	return stored, nil
}

// UpdateMetadata overwrites the size, shape, digest, and last_modified
// of the record matching record's natural key. Returns false when no
// record matched.
func (c *Catalog) UpdateMetadata(ctx context.Context, record schema.Metadata) (bool, error) {
	if err := record.Validate(); err != nil {
		return false, fmt.Errorf("catalog: update metadata: %w", err)
	}
	var updated bool
	err := c.withConn(ctx, "update metadata", func(conn *sqlite.Conn) error {
		var err error
		updated, err = updateMetadata(conn, record)
		return err
	})
	return updated, err
}

// SyncMetadata reconciles an externally sourced record into the cache.
// When no record shares its natural key, it is inserted. Otherwise the
// cached record is overwritten only if the external last_modified is
// strictly later. Returns whether the cache changed.
//
// A malformed timestamp on either side is a comparison failure: the
// cache is left untouched and the error wraps
// schema.ErrMalformedTimestamp.
func (c *Catalog) SyncMetadata(ctx context.Context, external schema.Metadata) (bool, error) {
	if err := external.Validate(); err != nil {
		return false, fmt.Errorf("catalog: sync metadata: %w", err)
	}
	if external.RelicID == 0 {
		return false, fmt.Errorf("catalog: sync metadata %q: relic id is required", external.Name)
	}
	externalTime, _ := schema.ParseTimestamp(external.LastModified)

	var changed bool
	err := c.withTransaction(ctx, "sync metadata", func(conn *sqlite.Conn) error {
		local, found, err := metadataByName(conn, external.Name, external.DataKind, external.RelicID)
		if err != nil {
			return err
		}
		if !found {
			if _, err := insertMetadata(conn, external); err != nil {
				return err
			}
			changed = true
			return nil
		}

		localTime, err := schema.ParseTimestamp(local.LastModified)
		if err != nil {
			return fmt.Errorf("catalog: sync metadata %q: cached last_modified: %w", external.Name, err)
		}
		if !externalTime.After(localTime) {
			return nil
		}
		changed, err = updateMetadata(conn, external)
		return err
	})
	return changed, err
}

// MetadataByName returns the record with the given natural key.
func (c *Catalog) MetadataByName(ctx context.Context, name, dataKind string, relicID int64) (schema.Metadata, bool, error) {
	var (
		record schema.Metadata
		found  bool
	)
	err := c.withConn(ctx, "metadata by name", func(conn *sqlite.Conn) error {
		var err error
		record, found, err = metadataByName(conn, name, dataKind, relicID)
		return err
	})
	return record, found, err
}

// MetadataByRelic returns every record attached to one relic, ordered
// by data kind then name.
func (c *Catalog) MetadataByRelic(ctx context.Context, relicID int64) ([]schema.Metadata, error) {
	var records []schema.Metadata
	err := c.withConn(ctx, "metadata by relic", func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, metadataSelect+` WHERE m.relic_id = ? ORDER BY m.data_type, m.name`,
			&sqlitex.ExecOptions{
				Args: []any{relicID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					records = append(records, scanMetadata(stmt))
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: metadata for relic %d: %w", relicID, err)
	}
	return records, nil
}

// AllMetadata enumerates every cached record. Each range over the
// returned sequence takes a fresh snapshot, so the sequence is
// restartable, and the connection is released before the first yield,
// so the loop body may call back into the catalog.
func (c *Catalog) AllMetadata(ctx context.Context) iter.Seq2[schema.Metadata, error] {
	return func(yield func(schema.Metadata, error) bool) {
		var records []schema.Metadata
		err := c.withConn(ctx, "all metadata", func(conn *sqlite.Conn) error {
			return sqlitex.Execute(conn, metadataSelect+` ORDER BY m.id`, &sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					records = append(records, scanMetadata(stmt))
					return nil
				},
			})
		})
		if err != nil {
			yield(schema.Metadata{}, fmt.Errorf("catalog: all metadata: %w", err))
			return
		}
		for _, record := range records {
			if !yield(record, nil) {
				return
			}
		}
	}
}

func metadataByName(conn *sqlite.Conn, name, dataKind string, relicID int64) (schema.Metadata, bool, error) {
	var (
		record schema.Metadata
		found  bool
	)
	err := sqlitex.Execute(conn,
		metadataSelect+` WHERE m.name = ? AND m.data_type = ? AND m.relic_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{name, dataKind, relicID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record = scanMetadata(stmt)
				found = true
				return nil
			},
		})
	if err != nil {
		return schema.Metadata{}, false, fmt.Errorf("catalog: metadata %s/%s for relic %d: %w", dataKind, name, relicID, err)
	}
	return record, found, nil
}

func insertMetadata(conn *sqlite.Conn, record schema.Metadata) (int64, error) {
	err := sqlitex.Execute(conn,
		`INSERT INTO metadata (name, data_type, relic_id, size, shape, digest, last_modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			record.Name,
			record.DataKind,
			record.RelicID,
			nullable(record.Size),
			nullable(record.Shape),
			optionalText(record.Digest),
			record.LastModified,
		}})
	if err != nil {
		return 0, fmt.Errorf("catalog: insert metadata %s/%s for relic %d: %w",
			record.DataKind, record.Name, record.RelicID, err)
	}
	return conn.LastInsertRowID(), nil
}

func updateMetadata(conn *sqlite.Conn, record schema.Metadata) (bool, error) {
	err := sqlitex.Execute(conn,
		`UPDATE metadata SET size = ?, shape = ?, digest = ?, last_modified = ?
		 WHERE name = ? AND data_type = ? AND relic_id = ?`,
		&sqlitex.ExecOptions{Args: []any{
			nullable(record.Size),
			nullable(record.Shape),
			optionalText(record.Digest),
			record.LastModified,
			record.Name,
			record.DataKind,
			record.RelicID,
		}})
	if err != nil {
		return false, fmt.Errorf("catalog: update metadata %s/%s for relic %d: %w",
			record.DataKind, record.Name, record.RelicID, err)
	}
	return conn.Changes() > 0, nil
}
