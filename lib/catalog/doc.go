// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog is the local relational cache of relic identities,
// item metadata, and tags gathered from every storage backend.
//
// The catalog lives in a private in-memory SQLite database opened
// through lib/sqlitepool. It holds three tables:
//
//   - relics: one row per (relic_name, relic_type, storage_name), with
//     a surrogate id and a last_modified stamp.
//   - metadata: one row per (name, data_type, relic_id) describing a
//     stored item. Reconciled last-writer-wins on last_modified.
//   - tags: key/value pairs attached to a relic id.
//
// Every operation takes the pool's only connection for its duration,
// so multi-statement operations (lookup-then-insert, cascading
// deletes) are atomic with respect to each other without a separate
// lock.
//
// The catalog is a derived view. It is rebuilt from backends by the
// reconciliation engine in lib/reliquery and never written back to
// them.
//
// [Catalog.Query] executes caller-supplied SQL. Callers can therefore
// mutate or corrupt the cache; the next reconciliation repairs it.
package catalog
