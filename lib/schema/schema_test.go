// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"testing"
	"time"
)

func TestTimestampRoundTrip(t *testing.T) {
	original := time.Date(2026, 3, 9, 17, 4, 5, 0, time.UTC)

	formatted := FormatTimestamp(original)
	if formatted != "03/09/2026 17:04:05" {
		t.Fatalf("FormatTimestamp = %q, want %q", formatted, "03/09/2026 17:04:05")
	}

	parsed, err := ParseTimestamp(formatted)
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if !parsed.Equal(original) {
		t.Errorf("parsed = %v, want %v", parsed, original)
	}
}

func TestFormatTimestampConvertsToUTC(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	local := time.Date(2026, 1, 1, 1, 30, 0, 0, zone)

	if got := FormatTimestamp(local); got != "12/31/2025 23:30:00" {
		t.Errorf("FormatTimestamp = %q, want %q", got, "12/31/2025 23:30:00")
	}
}

func TestParseTimestampRejectsMalformed(t *testing.T) {
	for _, value := range []string{
		"",
		"2026-03-09 17:04:05",
		"13/40/2026 17:04:05",
		"03/09/2026",
	} {
		_, err := ParseTimestamp(value)
		if err == nil {
			t.Errorf("ParseTimestamp(%q): expected error", value)
			continue
		}
		if !errors.Is(err, ErrMalformedTimestamp) {
			t.Errorf("ParseTimestamp(%q) error = %v, want ErrMalformedTimestamp", value, err)
		}
	}
}

func TestMetadataValidate(t *testing.T) {
	valid := Metadata{
		Name:         "weights",
		DataKind:     DataKindArrays,
		LastModified: "03/09/2026 17:04:05",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate(valid): %v", err)
	}

	missingKind := valid
	missingKind.DataKind = ""
	if err := missingKind.Validate(); err == nil {
		t.Error("expected error for missing data kind")
	}

	badTimestamp := valid
	badTimestamp.LastModified = "yesterday"
	err := badTimestamp.Validate()
	if !errors.Is(err, ErrMalformedTimestamp) {
		t.Errorf("Validate(bad timestamp) = %v, want ErrMalformedTimestamp", err)
	}
}
