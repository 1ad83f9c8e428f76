// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package reliquery aggregates relics across storage backends into
// one queryable catalog.
//
// A [Reliquery] owns an in-memory lib/catalog and a fixed list of
// [Backend] values. [New] runs one reconciliation pass before
// returning; [Reliquery.Sync] runs another on demand. A pass visits
// each backend in order, snapshotting its relic identities, tags, and
// metadata documents under a per-backend deadline, and merges the
// snapshot into the catalog:
//
//   - identities are registered once and never rewritten;
//   - tag pairs not yet cached are added;
//   - metadata is merged last-writer-wins on last_modified.
//
// After every backend has been visited, identities that no backend
// reported are purged with their metadata and tags. Identities of a
// backend whose enumeration failed or timed out are kept, so a
// transient outage leaves a stale view instead of an empty one.
//
// Backend failures never abort a pass: they are logged, counted in the
// [SyncReport], and the next backend proceeds. Sync returns an error
// only for context cancellation or catalog failure.
//
// Queries ([Reliquery.Query], [Reliquery.RelicsByTag], and the listing
// helpers) read the catalog only. A Reliquery serializes passes,
// queries, and removals with a mutex, so a query never observes a
// half-applied pass.
package reliquery
