// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package relic

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/The-Dev-Effect/reliquery/lib/clock"
	"github.com/The-Dev-Effect/reliquery/lib/digest"
	"github.com/The-Dev-Effect/reliquery/lib/reliquery"
	"github.com/The-Dev-Effect/reliquery/lib/schema"
	"github.com/The-Dev-Effect/reliquery/lib/storage"
)

var epoch = time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

func newTestRelic(t *testing.T) (*Relic, *storage.Storage, *clock.FakeClock) {
	t.Helper()
	backend, err := storage.New(storage.Config{
		Name:        "stor1",
		Driver:      storage.NewMemoryDriver(),
		Compression: storage.CompressionZstd,
		Logger:      slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	fakeClock := clock.Fake(epoch)
	r, err := Open(context.Background(), Config{Name: "r1", Type: "basic", Storage: backend, Clock: fakeClock})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return r, backend, fakeClock
}

func TestOpenCreatesRelic(t *testing.T) {
	r, backend, _ := newTestRelic(t)
	exists, err := Exists(context.Background(), backend, r.Type(), r.Name())
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Error("relic does not exist after Open")
	}
	missing, err := Exists(context.Background(), backend, "basic", "nope")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if missing {
		t.Error("Exists reported a relic that was never opened")
	}
}

func TestOpenRejectsEmptyNames(t *testing.T) {
	_, backend, _ := newTestRelic(t)
	_, err := Open(context.Background(), Config{Type: "basic", Storage: backend})
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("Open without name: %v, want ErrInvalidID", err)
	}
}

func TestOpenRejectsSeparatorInNames(t *testing.T) {
	_, backend, _ := newTestRelic(t)
	ctx := context.Background()
	for _, cfg := range []Config{
		{Name: "exp/run1", Type: "basic", Storage: backend},
		{Name: "run1", Type: "exp/basic", Storage: backend},
		{Name: "..", Type: "basic", Storage: backend},
	} {
		if _, err := Open(ctx, cfg); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Open(%s/%s) = %v, want ErrInvalidID", cfg.Type, cfg.Name, err)
		}
	}
	exists, err := Exists(ctx, backend, "basic", "exp")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("rejected name created relic \"exp\"")
	}
}

func TestTextRoundTripRecordsMetadata(t *testing.T) {
	r, backend, _ := newTestRelic(t)
	ctx := context.Background()

	if err := r.AddText(ctx, "notes", "héllo"); err != nil {
		t.Fatalf("AddText: %v", err)
	}
	text, err := r.GetText(ctx, "notes")
	if err != nil {
		t.Fatalf("GetText: %v", err)
	}
	if text != "héllo" {
		t.Errorf("GetText = %q", text)
	}

	record, err := backend.GetMetadata(ctx, "basic", "r1", schema.DataKindText, "notes")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if record.Size == nil || *record.Size != 6 {
		t.Errorf("Size = %v, want 6 bytes", record.Size)
	}
	if record.Shape == nil || *record.Shape != "5" {
		t.Errorf("Shape = %v, want 5 characters", record.Shape)
	}
	if record.LastModified != "03/09/2026 12:00:00" {
		t.Errorf("LastModified = %q", record.LastModified)
	}
	if len(record.Digest) != 64 {
		t.Errorf("Digest = %q, want 64 hex characters", record.Digest)
	}
}

func TestArrayShapeAndDigest(t *testing.T) {
	r, backend, _ := newTestRelic(t)
	ctx := context.Background()
	payload := []byte{1, 2, 3, 4, 5}

	if err := r.AddArray(ctx, "vec", payload, []int{5}); err != nil {
		t.Fatalf("AddArray: %v", err)
	}
	got, err := r.GetArray(ctx, "vec")
	if err != nil {
		t.Fatalf("GetArray: %v", err)
	}
	if !slices.Equal(got, payload) {
		t.Errorf("GetArray = %v, want %v", got, payload)
	}

	record, err := backend.GetMetadata(ctx, "basic", "r1", schema.DataKindArrays, "vec")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if record.Shape == nil || *record.Shape != "(5,)" {
		t.Errorf("Shape = %v, want (5,)", record.Shape)
	}
	if want := digest.Sum(payload).String(); record.Digest != want {
		t.Errorf("Digest = %q, want %q", record.Digest, want)
	}
}

func TestFormatShape(t *testing.T) {
	tests := []struct {
		dims []int
		want string
	}{
		{nil, "()"},
		{[]int{5}, "(5,)"},
		{[]int{100, 128}, "(100, 128)"},
		{[]int{2, 3, 4}, "(2, 3, 4)"},
	}
	for _, test := range tests {
		if got := FormatShape(test.dims); got != test.want {
			t.Errorf("FormatShape(%v) = %q, want %q", test.dims, got, test.want)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	r, _, _ := newTestRelic(t)
	ctx := context.Background()
	type params struct {
		LearningRate float64 `json:"learning_rate"`
		Layers       []int   `json:"layers"`
	}
	in := params{LearningRate: 0.01, Layers: []int{64, 32}}
	if err := r.AddJSON(ctx, "params", in); err != nil {
		t.Fatalf("AddJSON: %v", err)
	}
	var out params
	if err := r.GetJSON(ctx, "params", &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.LearningRate != in.LearningRate || !slices.Equal(out.Layers, in.Layers) {
		t.Errorf("GetJSON = %+v, want %+v", out, in)
	}
}

func TestFileKindsRoundTrip(t *testing.T) {
	r, backend, _ := newTestRelic(t)
	ctx := context.Background()
	dir := t.TempDir()

	source := filepath.Join(dir, "report.html")
	if err := os.WriteFile(source, []byte("<h1>results</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.AddHTML(ctx, "report", source); err != nil {
		t.Fatalf("AddHTML: %v", err)
	}
	html, err := r.GetHTML(ctx, "report")
	if err != nil {
		t.Fatalf("GetHTML: %v", err)
	}
	if html != "<h1>results</h1>" {
		t.Errorf("GetHTML = %q", html)
	}

	if err := r.AddFile(ctx, "raw", source); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	dest := filepath.Join(dir, "copy.html")
	if err := r.SaveFile(ctx, "raw", dest); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	copied, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(copied) != "<h1>results</h1>" {
		t.Errorf("saved file = %q", copied)
	}

	record, err := backend.GetMetadata(ctx, "basic", "r1", schema.DataKindFiles, "raw")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if record.Size == nil || *record.Size != float64(len("<h1>results</h1>")) {
		t.Errorf("Size = %v", record.Size)
	}
	if record.Digest != digest.Sum(copied).String() {
		t.Errorf("Digest = %q, want the digest of the file contents", record.Digest)
	}
}

func TestListAndDescribe(t *testing.T) {
	r, _, _ := newTestRelic(t)
	ctx := context.Background()

	for _, name := range []string{"b", "a"} {
		if err := r.AddImage(ctx, name, []byte("png")); err != nil {
			t.Fatalf("AddImage: %v", err)
		}
	}
	if err := r.AddPandasDF(ctx, "frame", []byte("parquet"), 10, 3); err != nil {
		t.Fatalf("AddPandasDF: %v", err)
	}

	images, err := r.ListImages(ctx)
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if !slices.Equal(images, []string{"a", "b"}) {
		t.Errorf("ListImages = %v, want [a b]", images)
	}
	videos, err := r.ListVideos(ctx)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("ListVideos = %v, want none", videos)
	}

	described, err := r.Describe(ctx)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(described[schema.DataKindImages]) != 2 {
		t.Errorf("Describe images = %v, want 2 records", described[schema.DataKindImages])
	}
	frames := described[schema.DataKindPandasDF]
	if len(frames) != 1 || frames[0].Shape == nil || *frames[0].Shape != "(10, 3)" {
		t.Errorf("Describe pandasdf = %+v, want shape (10, 3)", frames)
	}
}

func TestEmptyItemNameRejected(t *testing.T) {
	r, _, _ := newTestRelic(t)
	ctx := context.Background()
	if err := r.AddText(ctx, "", "x"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("AddText with empty name: %v", err)
	}
	if _, err := r.GetArray(ctx, ""); !errors.Is(err, ErrInvalidID) {
		t.Errorf("GetArray with empty name: %v", err)
	}
	if err := r.AddText(ctx, "notes/v1", "x"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("AddText with / in name: %v", err)
	}
	names, err := r.List(ctx, schema.DataKindText)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("List = %v, want nothing stored", names)
	}
}

func TestAddTagMerges(t *testing.T) {
	r, _, _ := newTestRelic(t)
	ctx := context.Background()

	if _, err := r.AddTag(ctx, map[string]string{"owner": "ana", "stage": "draft"}); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	merged, err := r.AddTag(ctx, map[string]string{"stage": "final"})
	if err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if merged["owner"] != "ana" || merged["stage"] != "final" || len(merged) != 2 {
		t.Errorf("AddTag = %v", merged)
	}
	listed, err := r.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(listed) != 2 || listed["stage"] != "final" {
		t.Errorf("ListTags = %v", listed)
	}
}

func TestFromHandleFindsTaggedRelic(t *testing.T) {
	r, backend, fakeClock := newTestRelic(t)
	ctx := context.Background()
	if _, err := r.AddTag(ctx, map[string]string{"project": "x"}); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if err := r.AddText(ctx, "notes", "hi"); err != nil {
		t.Fatalf("AddText: %v", err)
	}

	rq, err := reliquery.New(ctx, reliquery.Config{
		Backends: []reliquery.Backend{backend},
		Clock:    fakeClock,
	})
	if err != nil {
		t.Fatalf("reliquery.New: %v", err)
	}
	defer rq.Close()

	handles, err := rq.RelicsByTag(ctx, "project", "x")
	if err != nil {
		t.Fatalf("RelicsByTag: %v", err)
	}
	if len(handles) != 1 {
		t.Fatalf("RelicsByTag = %v, want one handle", handles)
	}
	reopened, err := FromHandle(ctx, handles[0], fakeClock)
	if err != nil {
		t.Fatalf("FromHandle: %v", err)
	}
	text, err := reopened.GetText(ctx, "notes")
	if err != nil {
		t.Fatalf("GetText: %v", err)
	}
	if text != "hi" {
		t.Errorf("GetText = %q", text)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	r, backend, _ := newTestRelic(t)
	ctx := context.Background()
	if err := r.AddImage(ctx, "plot", []byte("original")); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if err := r.Verify(ctx, schema.DataKindImages, "plot"); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	path := storage.ItemPath("basic", "r1", schema.DataKindImages, "plot")
	if err := backend.PutBinary(ctx, path, []byte("replaced")); err != nil {
		t.Fatalf("PutBinary: %v", err)
	}
	if err := r.Verify(ctx, schema.DataKindImages, "plot"); !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("Verify after overwrite = %v, want ErrDigestMismatch", err)
	}
}
