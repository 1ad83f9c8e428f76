// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/The-Dev-Effect/reliquery/lib/schema"
)

func TestAddRelicTagPermitsDuplicates(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	tag := schema.Tag{RelicID: relic.ID, Pairs: map[string]string{"owner": "lab", "stage": "raw"}}
	added, err := catalog.AddRelicTag(ctx, tag)
	if err != nil {
		t.Fatalf("AddRelicTag: %v", err)
	}
	if len(added) != 2 || added[0].Key != "owner" || added[1].Key != "stage" {
		t.Errorf("added = %+v, want owner then stage", added)
	}
	if added[0].CreatedAt != schema.FormatTimestamp(testEpoch) {
		t.Errorf("CreatedAt = %q, want clock time", added[0].CreatedAt)
	}

	all, err := catalog.AddRelicTag(ctx, tag)
	if err != nil {
		t.Fatalf("second AddRelicTag: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("tags = %d, want 4 (duplicates kept)", len(all))
	}
}

func TestAddRelicTagReturnsEveryTagOnRelic(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")
	other := registerRelic(t, catalog, "r2", "test", "stor1")

	if _, err := catalog.AddRelicTag(ctx, schema.Tag{RelicID: other.ID, Pairs: map[string]string{"z": "9"}}); err != nil {
		t.Fatalf("AddRelicTag on other relic: %v", err)
	}
	if _, err := catalog.AddRelicTag(ctx, schema.Tag{RelicID: relic.ID, Pairs: map[string]string{"a": "1"}}); err != nil {
		t.Fatalf("first AddRelicTag: %v", err)
	}
	entries, err := catalog.AddRelicTag(ctx, schema.Tag{RelicID: relic.ID, Pairs: map[string]string{"b": "2"}})
	if err != nil {
		t.Fatalf("second AddRelicTag: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v, want a=1 and b=2", entries)
	}
	if entries[0].Key != "a" || entries[0].Value != "1" || entries[1].Key != "b" || entries[1].Value != "2" {
		t.Errorf("entries = %+v, want a=1 then b=2", entries)
	}
	for _, entry := range entries {
		if entry.RelicID != relic.ID {
			t.Errorf("entry %+v belongs to relic %d, want %d", entry, entry.RelicID, relic.ID)
		}
	}
}

func TestSyncTagsIsIdempotent(t *testing.T) {
	catalog, fakeClock := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	tag := schema.Tag{RelicID: relic.ID, Pairs: map[string]string{"a": "1", "b": "2"}}
	inserted, err := catalog.SyncTags(ctx, tag)
	if err != nil {
		t.Fatalf("SyncTags: %v", err)
	}
	if inserted != 2 {
		t.Errorf("inserted = %d, want 2", inserted)
	}

	fakeClock.Advance(time.Minute)
	inserted, err = catalog.SyncTags(ctx, tag)
	if err != nil {
		t.Fatalf("second SyncTags: %v", err)
	}
	if inserted != 0 {
		t.Errorf("second sync inserted = %d, want 0", inserted)
	}

	// A changed value is a new pair.
	inserted, err = catalog.SyncTags(ctx, schema.Tag{RelicID: relic.ID, Pairs: map[string]string{"a": "1", "b": "3"}})
	if err != nil {
		t.Fatalf("third SyncTags: %v", err)
	}
	if inserted != 1 {
		t.Errorf("third sync inserted = %d, want 1", inserted)
	}

	entries, err := catalog.ByRelicTag(ctx, schema.Tag{RelicID: relic.ID, Pairs: map[string]string{"a": "1"}})
	if err != nil {
		t.Fatalf("ByRelicTag: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries for a=1 = %d, want 1", len(entries))
	}
	if entries[0].CreatedAt != schema.FormatTimestamp(testEpoch) {
		t.Errorf("CreatedAt = %q, want the first sync time", entries[0].CreatedAt)
	}
}

func TestSyncTagsRejectsEmptyKey(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	_, err := catalog.SyncTags(ctx, schema.Tag{RelicID: relic.ID, Pairs: map[string]string{"": "x", "ok": "y"}})
	if err == nil {
		t.Fatal("expected error for empty key")
	}
	all, _ := catalog.AllTagsFromRelic(ctx, relic.ID)
	if len(all) != 0 {
		t.Errorf("tags = %d, want 0 after rolled back sync", len(all))
	}
}

func TestByKeyValueSpansRelics(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	first := registerRelic(t, catalog, "r1", "test", "stor1")
	second := registerRelic(t, catalog, "r2", "test", "stor2")
	other := registerRelic(t, catalog, "r3", "test", "stor2")

	pairs := map[string]string{"project": "apollo"}
	for _, id := range []int64{first.ID, second.ID} {
		if _, err := catalog.SyncTags(ctx, schema.Tag{RelicID: id, Pairs: pairs}); err != nil {
			t.Fatalf("SyncTags: %v", err)
		}
	}
	if _, err := catalog.SyncTags(ctx, schema.Tag{RelicID: other.ID, Pairs: map[string]string{"project": "gemini"}}); err != nil {
		t.Fatalf("SyncTags: %v", err)
	}

	entries, err := catalog.ByKeyValue(ctx, "project", "apollo")
	if err != nil {
		t.Fatalf("ByKeyValue: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].RelicID != first.ID || entries[1].RelicID != second.ID {
		t.Errorf("relic ids = %d, %d, want %d, %d", entries[0].RelicID, entries[1].RelicID, first.ID, second.ID)
	}
}

func TestRemoveRelicTag(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	if _, err := catalog.SyncTags(ctx, schema.Tag{RelicID: relic.ID, Pairs: map[string]string{"a": "1", "b": "2", "c": "3"}}); err != nil {
		t.Fatalf("SyncTags: %v", err)
	}

	removed, err := catalog.RemoveRelicTag(ctx, schema.Tag{RelicID: relic.ID, Pairs: map[string]string{"a": "1", "b": "wrong"}})
	if err != nil {
		t.Fatalf("RemoveRelicTag: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	removed, err = catalog.RemoveRelicTag(ctx, schema.Tag{RelicID: relic.ID})
	if err != nil {
		t.Fatalf("RemoveRelicTag(all): %v", err)
	}
	if removed != 2 {
		t.Errorf("removed all = %d, want 2", removed)
	}
}
