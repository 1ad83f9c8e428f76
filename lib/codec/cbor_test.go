// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type sampleDocument struct {
	Name         string         `json:"name"`
	DataKind     string         `json:"data_type"`
	Size         *float64       `json:"size,omitempty"`
	Tags         map[string]any `json:"tags,omitempty"`
	LastModified string         `json:"last_modified"`
}

func TestMarshalDeterministic(t *testing.T) {
	document := sampleDocument{
		Name:     "weights",
		DataKind: "arrays",
		Tags: map[string]any{
			"zeta":  "last",
			"alpha": "first",
			"mid":   "middle",
		},
		LastModified: "03/09/2026 17:04:05",
	}

	first, err := Marshal(document)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(document)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestUnmarshalDocumentCBOR(t *testing.T) {
	size := 12345.0
	data, err := Marshal(sampleDocument{Name: "a", DataKind: "arrays", Size: &size})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleDocument
	format, err := UnmarshalDocument(data, &decoded)
	if err != nil {
		t.Fatalf("UnmarshalDocument: %v", err)
	}
	if format != FormatCBOR {
		t.Errorf("format = %v, want cbor", format)
	}
	if decoded.Size == nil || *decoded.Size != 12345 {
		t.Errorf("Size = %v, want 12345", decoded.Size)
	}
}

func TestUnmarshalDocumentJSON(t *testing.T) {
	data := []byte(`  {"name": "notes", "data_type": "text", "size": 11, "tags": {"owner": "lab"}, "last_modified": "03/09/2026 17:04:05"}`)

	var decoded sampleDocument
	format, err := UnmarshalDocument(data, &decoded)
	if err != nil {
		t.Fatalf("UnmarshalDocument: %v", err)
	}
	if format != FormatJSON {
		t.Errorf("format = %v, want json", format)
	}
	if decoded.Name != "notes" || decoded.DataKind != "text" {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Tags["owner"] != "lab" {
		t.Errorf("Tags[owner] = %v, want lab", decoded.Tags["owner"])
	}
}

func TestUnmarshalDocumentAnyMapsUseStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"nested": map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if _, err := UnmarshalDocument(data, &decoded); err != nil {
		t.Fatalf("UnmarshalDocument: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if _, ok := outer["nested"].(map[string]any); !ok {
		t.Errorf("nested type = %T, want map[string]any", outer["nested"])
	}
}

func TestUnmarshalDocumentEmpty(t *testing.T) {
	var decoded sampleDocument
	_, err := UnmarshalDocument([]byte(" \n"), &decoded)
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("error = %v, want ErrEmptyDocument", err)
	}
}

func TestUnmarshalDocumentCorrupt(t *testing.T) {
	var decoded sampleDocument
	if _, err := UnmarshalDocument([]byte{0xa1, 0x64}, &decoded); err == nil {
		t.Error("expected error for truncated CBOR")
	}
	if _, err := UnmarshalDocument([]byte(`{"name": `), &decoded); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]string{"relic": "r1"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"relic"`) {
		t.Errorf("Diagnose = %q, want it to mention the key", diagnostic)
	}
}
