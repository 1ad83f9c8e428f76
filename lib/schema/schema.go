// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"fmt"
	"time"
)

// Item data kinds. The kind is the third path segment of every stored
// item: <relic_type>/<relic_name>/<kind>/<item>.
const (
	DataKindArrays    = "arrays"
	DataKindText      = "text"
	DataKindHTML      = "html"
	DataKindImages    = "images"
	DataKindJSON      = "json"
	DataKindPandasDF  = "pandasdf"
	DataKindFiles     = "files"
	DataKindNotebooks = "notebooks"
	DataKindVideos    = "videos"
)

// DataKinds lists every item kind in display order.
var DataKinds = []string{
	DataKindArrays,
	DataKindText,
	DataKindHTML,
	DataKindImages,
	DataKindJSON,
	DataKindPandasDF,
	DataKindFiles,
	DataKindNotebooks,
	DataKindVideos,
}

// Reserved path segments inside a relic's subtree.
const (
	MetadataSegment = "metadata"
	TagsSegment     = "tags"
	ExistsSegment   = "exists"
)

// TimestampLayout is the Go reference layout for the fixed
// "MM/DD/YYYY HH:MM:SS" last-modified format. Values are always UTC.
const TimestampLayout = "01/02/2006 15:04:05"

// ErrMalformedTimestamp is wrapped by every error returned from
// [ParseTimestamp].
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// FormatTimestamp renders t in TimestampLayout after converting to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout string as UTC. Empty and
// unparseable values return an error wrapping ErrMalformedTimestamp.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrMalformedTimestamp)
	}
	parsed, err := time.ParseInLocation(TimestampLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedTimestamp, value, err)
	}
	return parsed, nil
}

// RelicData is one logical relic within one named backend. The natural
// key is (Name, Type, StorageName); ID is the catalog's surrogate id
// and is zero until the relic has been registered.
type RelicData struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"relic_name"`
	Type         string `json:"relic_type"`
	StorageName  string `json:"storage_name"`
	LastModified string `json:"last_modified,omitempty"`
}

// Metadata describes one stored item belonging to a relic. The natural
// key is (Name, DataKind, RelicID). Size and Shape are optional: html
// and file items have neither, arrays carry their dimensions as Shape,
// text carries its length.
//
// RelicName and RelicType locate the owning relic on a backend before
// it has a catalog id; the catalog resolves them by RelicID when
// reading rows back.
type Metadata struct {
	ID           int64    `json:"id,omitempty"`
	Name         string   `json:"name"`
	DataKind     string   `json:"data_type"`
	RelicID      int64    `json:"relic_id,omitempty"`
	RelicName    string   `json:"relic_name"`
	RelicType    string   `json:"relic_type"`
	Size         *float64 `json:"size,omitempty"`
	Shape        *string  `json:"shape,omitempty"`
	Digest       string   `json:"digest,omitempty"`
	LastModified string   `json:"last_modified"`
}

// Validate checks the fields every metadata record must carry.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("metadata: name is required")
	}
	if m.DataKind == "" {
		return fmt.Errorf("metadata %q: data kind is required", m.Name)
	}
	if _, err := ParseTimestamp(m.LastModified); err != nil {
		return fmt.Errorf("metadata %q: last_modified: %w", m.Name, err)
	}
	return nil
}

// Tag is a set of key/value annotations attached to one relic. It is
// used both to add pairs and to probe for them.
type Tag struct {
	RelicID int64
	Pairs   map[string]string
}

// TagEntry is one persisted key/value pair on a relic.
type TagEntry struct {
	ID        int64  `json:"id"`
	RelicID   int64  `json:"relic_id"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	CreatedAt string `json:"created"`
}

// Float returns a pointer to v, for populating Metadata.Size.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v, for populating Metadata.Shape.
func String(v string) *string { return &v }
