// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/The-Dev-Effect/reliquery/lib/schema"
)

const tagColumns = "id, relic_id, tag_key, tag_value, created"

func scanTag(stmt *sqlite.Stmt) schema.TagEntry {
	return schema.TagEntry{
		ID:        stmt.ColumnInt64(0),
		RelicID:   stmt.ColumnInt64(1),
		Key:       stmt.ColumnText(2),
		Value:     stmt.ColumnText(3),
		CreatedAt: stmt.ColumnText(4),
	}
}

// sortedKeys returns the keys of pairs in lexical order so inserts and
// probes are deterministic.
func sortedKeys(pairs map[string]string) []string {
	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// AddRelicTag inserts every pair of tag for tag.RelicID, without
// checking for duplicates, and returns every entry now attached to
// the relic in insertion order.
func (c *Catalog) AddRelicTag(ctx context.Context, tag schema.Tag) ([]schema.TagEntry, error) {
	if tag.RelicID == 0 {
		return nil, fmt.Errorf("catalog: add tag: relic id is required")
	}
	var entries []schema.TagEntry
	err := c.withTransaction(ctx, "add tag", func(conn *sqlite.Conn) error {
		created := c.now()
		for _, key := range sortedKeys(tag.Pairs) {
			if _, err := insertTag(conn, tag.RelicID, key, tag.Pairs[key], created); err != nil {
				return err
			}
		}
		var err error
		entries, err = tagsOfRelic(conn, tag.RelicID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// SyncTags inserts each pair of tag that is not already attached to
// tag.RelicID. Repeating a sync with the same pairs is a no-op.
// Returns the number of pairs inserted.
func (c *Catalog) SyncTags(ctx context.Context, tag schema.Tag) (int, error) {
	if tag.RelicID == 0 {
		return 0, fmt.Errorf("catalog: sync tags: relic id is required")
	}
	inserted := 0
	err := c.withTransaction(ctx, "sync tags", func(conn *sqlite.Conn) error {
		created := c.now()
		for _, key := range sortedKeys(tag.Pairs) {
			value := tag.Pairs[key]
			existing, err := tagsMatching(conn, tag.RelicID, key, value)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				continue
			}
			if _, err := insertTag(conn, tag.RelicID, key, value, created); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ByRelicTag returns the stored entries on tag.RelicID that match any
// pair of tag.
func (c *Catalog) ByRelicTag(ctx context.Context, tag schema.Tag) ([]schema.TagEntry, error) {
	var entries []schema.TagEntry
	err := c.withConn(ctx, "tags by relic", func(conn *sqlite.Conn) error {
		for _, key := range sortedKeys(tag.Pairs) {
			matched, err := tagsMatching(conn, tag.RelicID, key, tag.Pairs[key])
			if err != nil {
				return err
			}
			entries = append(entries, matched...)
		}
		return nil
	})
	return entries, err
}

// AllTagsFromRelic returns every entry attached to one relic in
// insertion order.
func (c *Catalog) AllTagsFromRelic(ctx context.Context, relicID int64) ([]schema.TagEntry, error) {
	var entries []schema.TagEntry
	err := c.withConn(ctx, "tags from relic", func(conn *sqlite.Conn) error {
		var err error
		entries, err = tagsOfRelic(conn, relicID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func tagsOfRelic(conn *sqlite.Conn, relicID int64) ([]schema.TagEntry, error) {
	var entries []schema.TagEntry
	err := sqlitex.Execute(conn, `SELECT `+tagColumns+` FROM tags WHERE relic_id = ? ORDER BY id`,
		&sqlitex.ExecOptions{
			Args: []any{relicID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, scanTag(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("catalog: tags for relic %d: %w", relicID, err)
	}
	return entries, nil
}

// ByKeyValue returns every entry, on any relic, with the given pair.
func (c *Catalog) ByKeyValue(ctx context.Context, key, value string) ([]schema.TagEntry, error) {
	var entries []schema.TagEntry
	err := c.withConn(ctx, "tags by key value", func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT `+tagColumns+` FROM tags WHERE tag_key = ? AND tag_value = ? ORDER BY id`,
			&sqlitex.ExecOptions{
				Args: []any{key, value},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					entries = append(entries, scanTag(stmt))
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: tags %s=%s: %w", key, value, err)
	}
	return entries, nil
}

// RemoveRelicTag deletes the entries on tag.RelicID matching each pair
// of tag. With no pairs, every tag on the relic is removed. Returns
// the number of entries deleted.
func (c *Catalog) RemoveRelicTag(ctx context.Context, tag schema.Tag) (int, error) {
	removed := 0
	err := c.withTransaction(ctx, "remove tag", func(conn *sqlite.Conn) error {
		if len(tag.Pairs) == 0 {
			err := sqlitex.Execute(conn, `DELETE FROM tags WHERE relic_id = ?`,
				&sqlitex.ExecOptions{Args: []any{tag.RelicID}})
			if err != nil {
				return fmt.Errorf("catalog: remove tags for relic %d: %w", tag.RelicID, err)
			}
			removed = conn.Changes()
			return nil
		}
		for _, key := range sortedKeys(tag.Pairs) {
			err := sqlitex.Execute(conn,
				`DELETE FROM tags WHERE relic_id = ? AND tag_key = ? AND tag_value = ?`,
				&sqlitex.ExecOptions{Args: []any{tag.RelicID, key, tag.Pairs[key]}})
			if err != nil {
				return fmt.Errorf("catalog: remove tag %s on relic %d: %w", key, tag.RelicID, err)
			}
			removed += conn.Changes()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func tagsMatching(conn *sqlite.Conn, relicID int64, key, value string) ([]schema.TagEntry, error) {
	var entries []schema.TagEntry
	err := sqlitex.Execute(conn,
		`SELECT `+tagColumns+` FROM tags WHERE relic_id = ? AND tag_key = ? AND tag_value = ? ORDER BY id`,
		&sqlitex.ExecOptions{
			Args: []any{relicID, key, value},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, scanTag(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("catalog: tag %s on relic %d: %w", key, relicID, err)
	}
	return entries, nil
}

func insertTag(conn *sqlite.Conn, relicID int64, key, value, created string) (schema.TagEntry, error) {
	if strings.TrimSpace(key) == "" {
		return schema.TagEntry{}, fmt.Errorf("catalog: tag on relic %d: empty key", relicID)
	}
	err := sqlitex.Execute(conn,
		`INSERT INTO tags (relic_id, tag_key, tag_value, created) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{relicID, key, value, created}})
	if err != nil {
		return schema.TagEntry{}, fmt.Errorf("catalog: insert tag %s on relic %d: %w", key, relicID, err)
	}
	return schema.TagEntry{
		ID:        conn.LastInsertRowID(),
		RelicID:   relicID,
		Key:       key,
		Value:     value,
		CreatedAt: created,
	}, nil
}
