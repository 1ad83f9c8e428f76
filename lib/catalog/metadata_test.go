// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/The-Dev-Effect/reliquery/lib/schema"
)

func arrayRecord(relicID int64, at time.Time, size float64) schema.Metadata {
	return schema.Metadata{
		Name:         "weights",
		DataKind:     schema.DataKindArrays,
		RelicID:      relicID,
		Size:         schema.Float(size),
		Shape:        schema.String("(100, 128, 128)"),
		LastModified: schema.FormatTimestamp(at),
	}
}

func TestAddMetadataUpdatesExistingKey(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	stored, err := catalog.AddMetadata(ctx, arrayRecord(relic.ID, testEpoch, 10))
	if err != nil {
		t.Fatalf("AddMetadata: %v", err)
	}
	if stored.ID == 0 {
		t.Error("AddMetadata returned zero id")
	}

	again, err := catalog.AddMetadata(ctx, arrayRecord(relic.ID, testEpoch.Add(time.Hour), 20))
	if err != nil {
		t.Fatalf("second AddMetadata: %v", err)
	}
	if again.ID != stored.ID {
		t.Errorf("second AddMetadata id = %d, want %d", again.ID, stored.ID)
	}

	got, found, err := catalog.MetadataByName(ctx, "weights", schema.DataKindArrays, relic.ID)
	if err != nil || !found {
		t.Fatalf("MetadataByName: found=%v err=%v", found, err)
	}
	if got.Size == nil || *got.Size != 20 {
		t.Errorf("Size = %v, want 20", got.Size)
	}
	if got.LastModified != schema.FormatTimestamp(testEpoch.Add(time.Hour)) {
		t.Errorf("LastModified = %q, want the second record's", got.LastModified)
	}
	records, err := catalog.MetadataByRelic(ctx, relic.ID)
	if err != nil {
		t.Fatalf("MetadataByRelic: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}
}

func TestMetadataByNameReadsBack(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	record := arrayRecord(relic.ID, testEpoch, 12345)
	record.Digest = "abc123"
	if _, err := catalog.AddMetadata(ctx, record); err != nil {
		t.Fatalf("AddMetadata: %v", err)
	}

	got, found, err := catalog.MetadataByName(ctx, "weights", schema.DataKindArrays, relic.ID)
	if err != nil || !found {
		t.Fatalf("MetadataByName: found=%v err=%v", found, err)
	}
	if got.Size == nil || *got.Size != 12345 {
		t.Errorf("Size = %v, want 12345", got.Size)
	}
	if got.Shape == nil || *got.Shape != "(100, 128, 128)" {
		t.Errorf("Shape = %v, want (100, 128, 128)", got.Shape)
	}
	if got.Digest != "abc123" {
		t.Errorf("Digest = %q, want abc123", got.Digest)
	}
	if got.RelicName != "r1" || got.RelicType != "test" {
		t.Errorf("relic = %s/%s, want test/r1", got.RelicType, got.RelicName)
	}
}

func TestMetadataOptionalFieldsStayNull(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	if _, err := catalog.AddMetadata(ctx, schema.Metadata{
		Name:         "report",
		DataKind:     schema.DataKindHTML,
		RelicID:      relic.ID,
		LastModified: schema.FormatTimestamp(testEpoch),
	}); err != nil {
		t.Fatalf("AddMetadata: %v", err)
	}

	got, _, err := catalog.MetadataByName(ctx, "report", schema.DataKindHTML, relic.ID)
	if err != nil {
		t.Fatalf("MetadataByName: %v", err)
	}
	if got.Size != nil || got.Shape != nil {
		t.Errorf("Size = %v, Shape = %v, want both nil", got.Size, got.Shape)
	}
}

func TestSyncMetadataLastWriterWins(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	changed, err := catalog.SyncMetadata(ctx, arrayRecord(relic.ID, testEpoch, 10))
	if err != nil || !changed {
		t.Fatalf("initial SyncMetadata: changed=%v err=%v", changed, err)
	}

	tests := []struct {
		name        string
		at          time.Time
		size        float64
		wantChanged bool
		wantSize    float64
	}{
		{"earlier is ignored", testEpoch.Add(-time.Hour), 20, false, 10},
		{"equal is ignored", testEpoch, 30, false, 10},
		{"later wins", testEpoch.Add(time.Second), 40, true, 40},
		{"older than the new value is ignored", testEpoch, 50, false, 40},
	}
	for _, test := range tests {
		changed, err := catalog.SyncMetadata(ctx, arrayRecord(relic.ID, test.at, test.size))
		if err != nil {
			t.Fatalf("%s: SyncMetadata: %v", test.name, err)
		}
		if changed != test.wantChanged {
			t.Errorf("%s: changed = %v, want %v", test.name, changed, test.wantChanged)
		}
		got, _, err := catalog.MetadataByName(ctx, "weights", schema.DataKindArrays, relic.ID)
		if err != nil {
			t.Fatalf("%s: MetadataByName: %v", test.name, err)
		}
		if *got.Size != test.wantSize {
			t.Errorf("%s: size = %v, want %v", test.name, *got.Size, test.wantSize)
		}
	}

	if count := countRows(t, catalog, "metadata"); count != 1 {
		t.Errorf("metadata rows = %d, want 1", count)
	}
}

func TestSyncMetadataComparesChronologically(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	// "12/01/2025" sorts after "01/15/2026" as a string but is earlier.
	december := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	january := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	if _, err := catalog.SyncMetadata(ctx, arrayRecord(relic.ID, december, 1)); err != nil {
		t.Fatalf("SyncMetadata(december): %v", err)
	}
	changed, err := catalog.SyncMetadata(ctx, arrayRecord(relic.ID, january, 2))
	if err != nil {
		t.Fatalf("SyncMetadata(january): %v", err)
	}
	if !changed {
		t.Error("a later timestamp that sorts earlier as text did not win")
	}
}

func TestSyncMetadataMalformedTimestamp(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	if _, err := catalog.SyncMetadata(ctx, arrayRecord(relic.ID, testEpoch, 10)); err != nil {
		t.Fatalf("SyncMetadata: %v", err)
	}

	bad := arrayRecord(relic.ID, testEpoch, 99)
	bad.LastModified = "2030-01-01T00:00:00Z"
	changed, err := catalog.SyncMetadata(ctx, bad)
	if !errors.Is(err, schema.ErrMalformedTimestamp) {
		t.Fatalf("error = %v, want ErrMalformedTimestamp", err)
	}
	if changed {
		t.Error("malformed record reported a change")
	}

	got, _, _ := catalog.MetadataByName(ctx, "weights", schema.DataKindArrays, relic.ID)
	if *got.Size != 10 {
		t.Errorf("size = %v, want 10 (unchanged)", *got.Size)
	}

	missing := arrayRecord(relic.ID, testEpoch, 1)
	missing.Name = "new"
	missing.LastModified = ""
	if _, err := catalog.SyncMetadata(ctx, missing); !errors.Is(err, schema.ErrMalformedTimestamp) {
		t.Errorf("missing timestamp error = %v, want ErrMalformedTimestamp", err)
	}
	if _, found, _ := catalog.MetadataByName(ctx, "new", schema.DataKindArrays, relic.ID); found {
		t.Error("record with missing timestamp was inserted")
	}
}

func TestSyncMetadataMalformedCachedTimestamp(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	if _, err := catalog.SyncMetadata(ctx, arrayRecord(relic.ID, testEpoch, 10)); err != nil {
		t.Fatalf("SyncMetadata: %v", err)
	}
	execSQL(t, catalog, "UPDATE metadata SET last_modified = 'garbage'")

	_, err := catalog.SyncMetadata(ctx, arrayRecord(relic.ID, testEpoch.Add(time.Hour), 20))
	if !errors.Is(err, schema.ErrMalformedTimestamp) {
		t.Errorf("error = %v, want ErrMalformedTimestamp", err)
	}
}

func TestUpdateMetadata(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	updated, err := catalog.UpdateMetadata(ctx, arrayRecord(relic.ID, testEpoch, 5))
	if err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}
	if updated {
		t.Error("UpdateMetadata on a missing record reported success")
	}

	if _, err := catalog.AddMetadata(ctx, arrayRecord(relic.ID, testEpoch, 5)); err != nil {
		t.Fatalf("AddMetadata: %v", err)
	}
	// Update is unconditional, even to an older timestamp.
	updated, err = catalog.UpdateMetadata(ctx, arrayRecord(relic.ID, testEpoch.Add(-time.Hour), 6))
	if err != nil || !updated {
		t.Fatalf("UpdateMetadata: updated=%v err=%v", updated, err)
	}
	got, _, _ := catalog.MetadataByName(ctx, "weights", schema.DataKindArrays, relic.ID)
	if *got.Size != 6 {
		t.Errorf("size = %v, want 6", *got.Size)
	}
}

func TestAllMetadataIsRestartable(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	for _, name := range []string{"a", "b", "c"} {
		record := arrayRecord(relic.ID, testEpoch, 1)
		record.Name = name
		if _, err := catalog.AddMetadata(ctx, record); err != nil {
			t.Fatalf("AddMetadata(%s): %v", name, err)
		}
	}

	sequence := catalog.AllMetadata(ctx)
	for pass := range 2 {
		var names []string
		for record, err := range sequence {
			if err != nil {
				t.Fatalf("pass %d: %v", pass, err)
			}
			names = append(names, record.Name)
		}
		if len(names) != 3 {
			t.Errorf("pass %d: got %v, want 3 records", pass, names)
		}
	}
}

func TestAllMetadataAllowsReentrantCalls(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")
	if _, err := catalog.AddMetadata(ctx, arrayRecord(relic.ID, testEpoch, 1)); err != nil {
		t.Fatalf("AddMetadata: %v", err)
	}

	for record, err := range catalog.AllMetadata(ctx) {
		if err != nil {
			t.Fatalf("AllMetadata: %v", err)
		}
		// Holding the only connection here would deadlock.
		if _, found, err := catalog.RelicDataByID(ctx, record.RelicID); err != nil || !found {
			t.Errorf("RelicDataByID inside iteration: found=%v err=%v", found, err)
		}
	}
}

func TestMetadataByRelic(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()
	relic := registerRelic(t, catalog, "r1", "test", "stor1")

	text := schema.Metadata{
		Name:         "notes",
		DataKind:     schema.DataKindText,
		RelicID:      relic.ID,
		LastModified: schema.FormatTimestamp(testEpoch),
	}
	for _, record := range []schema.Metadata{text, arrayRecord(relic.ID, testEpoch, 1)} {
		if _, err := catalog.AddMetadata(ctx, record); err != nil {
			t.Fatalf("AddMetadata: %v", err)
		}
	}

	records, err := catalog.MetadataByRelic(ctx, relic.ID)
	if err != nil {
		t.Fatalf("MetadataByRelic: %v", err)
	}
	if len(records) != 2 || records[0].DataKind != schema.DataKindArrays {
		t.Errorf("records = %+v, want arrays first", records)
	}
}
