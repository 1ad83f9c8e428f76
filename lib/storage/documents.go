// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"strconv"
	"strings"

	"github.com/The-Dev-Effect/reliquery/lib/codec"
	"github.com/The-Dev-Effect/reliquery/lib/schema"
)

// metadataDocument is the stored form of an item's metadata. Shape is
// untyped because JSON documents from older clients store text lengths
// as numbers and array shapes as lists.
type metadataDocument struct {
	Name         string   `json:"name"`
	DataKind     string   `json:"data_type"`
	RelicName    string   `json:"relic_name"`
	RelicType    string   `json:"relic_type"`
	Size         *float64 `json:"size,omitempty"`
	Shape        any      `json:"shape,omitempty"`
	Digest       string   `json:"digest,omitempty"`
	LastModified string   `json:"last_modified"`
}

// PutMetadata writes an item's metadata document at the path derived
// from its relic type, relic name, data kind, and item name.
func (s *Storage) PutMetadata(ctx context.Context, record schema.Metadata) error {
	if record.RelicType == "" || record.RelicName == "" {
		return fmt.Errorf("storage %s: metadata %q: relic type and name are required", s.name, record.Name)
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("storage %s: %w", s.name, err)
	}
	document := metadataDocument{
		Name:         record.Name,
		DataKind:     record.DataKind,
		RelicName:    record.RelicName,
		RelicType:    record.RelicType,
		Size:         record.Size,
		Digest:       record.Digest,
		LastModified: record.LastModified,
	}
	if record.Shape != nil {
		document.Shape = *record.Shape
	}
	data, err := codec.Marshal(document)
	if err != nil {
		return fmt.Errorf("storage %s: encoding metadata %q: %w", s.name, record.Name, err)
	}
	path := MetadataPath(record.RelicType, record.RelicName, record.DataKind, record.Name)
	key, err := s.key(path)
	if err != nil {
		return err
	}
	return s.driver.Put(ctx, key, data)
}

// GetMetadata reads one item's metadata document.
func (s *Storage) GetMetadata(ctx context.Context, relicType, relicName, kind, item string) (schema.Metadata, error) {
	path := MetadataPath(relicType, relicName, kind, item)
	key, err := s.key(path)
	if err != nil {
		return schema.Metadata{}, err
	}
	data, err := s.driver.Get(ctx, key)
	if err != nil {
		return schema.Metadata{}, err
	}
	return s.decodeMetadata(path, data)
}

func (s *Storage) decodeMetadata(path Path, data []byte) (schema.Metadata, error) {
	var document metadataDocument
	if _, err := codec.UnmarshalDocument(data, &document); err != nil {
		return schema.Metadata{}, fmt.Errorf("storage %s: decoding metadata %s: %w", s.name, path, err)
	}

	// The path is authoritative for location; documents from older
	// clients may omit the relic fields.
	record := schema.Metadata{
		Name:         path[4],
		DataKind:     path[3],
		RelicType:    path[0],
		RelicName:    path[1],
		Size:         document.Size,
		Digest:       document.Digest,
		LastModified: document.LastModified,
	}
	if shape, ok := formatShape(document.Shape); ok {
		record.Shape = &shape
	}
	return record, nil
}

// formatShape renders a stored shape as text. Lists become tuples:
// [100, 128] is "(100, 128)" and [5] is "(5,)".
func formatShape(value any) (string, bool) {
	switch shape := value.(type) {
	case nil:
		return "", false
	case string:
		return shape, true
	case []any:
		parts := make([]string, 0, len(shape))
		for _, dimension := range shape {
			part, _ := formatShape(dimension)
			parts = append(parts, part)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)", true
		}
		return "(" + strings.Join(parts, ", ") + ")", true
	case float64:
		return strconv.FormatFloat(shape, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(shape), 'f', -1, 32), true
	case int64:
		return strconv.FormatInt(shape, 10), true
	case uint64:
		return strconv.FormatUint(shape, 10), true
	default:
		return fmt.Sprint(shape), true
	}
}

// isMetadataKey reports whether segments name a metadata document:
// [type, name, "metadata", kind, item].
func isMetadataKey(segments Path) bool {
	return len(segments) == 5 && segments[2] == schema.MetadataSegment
}

// AllMetadata enumerates every metadata document on the backend. A
// document that cannot be read or decoded yields an error and
// enumeration continues; a listing failure yields one error and ends
// the sequence.
func (s *Storage) AllMetadata(ctx context.Context) iter.Seq2[schema.Metadata, error] {
	return func(yield func(schema.Metadata, error) bool) {
		keys, err := s.driver.List(ctx, "")
		if err != nil {
			yield(schema.Metadata{}, fmt.Errorf("storage %s: listing metadata: %w", s.name, err))
			return
		}
		for _, key := range keys {
			segments := splitKey(key)
			if !isMetadataKey(segments) {
				continue
			}
			record, err := s.readMetadata(ctx, segments)
			if err != nil && ctx.Err() != nil {
				yield(schema.Metadata{}, ctx.Err())
				return
			}
			if !yield(record, err) {
				return
			}
		}
	}
}

func (s *Storage) readMetadata(ctx context.Context, path Path) (schema.Metadata, error) {
	data, err := s.driver.Get(ctx, path.Key())
	if err != nil {
		return schema.Metadata{}, fmt.Errorf("storage %s: reading metadata %s: %w", s.name, path, err)
	}
	return s.decodeMetadata(path, data)
}

// Describe returns every metadata record of one relic grouped by data
// kind. Documents that fail to decode are logged and skipped.
func (s *Storage) Describe(ctx context.Context, relicType, relicName string) (map[string][]schema.Metadata, error) {
	prefix := RelicPath(relicType, relicName).Append(schema.MetadataSegment)
	if !prefix.validSegments() {
		return nil, fmt.Errorf("storage %s: invalid relic %q", s.name, prefix.Key())
	}
	keys, err := s.driver.List(ctx, prefix.Key())
	if err != nil {
		return nil, err
	}
	described := make(map[string][]schema.Metadata)
	for _, key := range keys {
		segments := splitKey(key)
		if !isMetadataKey(segments) {
			continue
		}
		record, err := s.readMetadata(ctx, segments)
		if err != nil {
			s.logger.Warn("skipping unreadable metadata", "key", key, "error", err)
			continue
		}
		described[record.DataKind] = append(described[record.DataKind], record)
	}
	return described, nil
}

// GetTags reads the tag document of the relic at path
// [relic_type, relic_name]. A relic without a tag document has no
// tags.
func (s *Storage) GetTags(ctx context.Context, path Path) (map[string]string, error) {
	if len(path) != 2 {
		return nil, fmt.Errorf("storage %s: relic path must be [type, name], got %q", s.name, path.Key())
	}
	tagsPath := TagsPath(path[0], path[1])
	key, err := s.key(tagsPath)
	if err != nil {
		return nil, err
	}
	data, err := s.driver.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var document map[string]any
	if _, err := codec.UnmarshalDocument(data, &document); err != nil {
		return nil, fmt.Errorf("storage %s: decoding tags %s: %w", s.name, tagsPath, err)
	}
	tags := make(map[string]string, len(document))
	for tagKey, value := range document {
		switch typed := value.(type) {
		case string:
			tags[tagKey] = typed
		case nil:
			tags[tagKey] = ""
		default:
			tags[tagKey] = fmt.Sprint(typed)
		}
	}
	return tags, nil
}

// PutTags replaces the tag document of the relic at path.
func (s *Storage) PutTags(ctx context.Context, path Path, tags map[string]string) error {
	if len(path) != 2 {
		return fmt.Errorf("storage %s: relic path must be [type, name], got %q", s.name, path.Key())
	}
	data, err := codec.Marshal(tags)
	if err != nil {
		return fmt.Errorf("storage %s: encoding tags: %w", s.name, err)
	}
	key, err := s.key(TagsPath(path[0], path[1]))
	if err != nil {
		return err
	}
	return s.driver.Put(ctx, key, data)
}

// MergeTags adds tags to the relic's tag document, overwriting values
// of existing keys, and returns the merged set.
func (s *Storage) MergeTags(ctx context.Context, path Path, tags map[string]string) (map[string]string, error) {
	merged, err := s.GetTags(ctx, path)
	if err != nil {
		return nil, err
	}
	maps.Copy(merged, tags)
	if err := s.PutTags(ctx, path, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// RelicTags is the tag document of one relic.
type RelicTags struct {
	Relic schema.RelicData
	Tags  map[string]string
}

// AllTags enumerates the tags of every relic on the backend. A relic
// whose tag document cannot be read yields an error and enumeration
// continues.
func (s *Storage) AllTags(ctx context.Context) iter.Seq2[RelicTags, error] {
	return func(yield func(RelicTags, error) bool) {
		for relic, err := range s.AllRelicData(ctx) {
			if err != nil {
				yield(RelicTags{}, err)
				return
			}
			tags, err := s.GetTags(ctx, RelicPath(relic.Type, relic.Name))
			if !yield(RelicTags{Relic: relic, Tags: tags}, err) {
				return
			}
		}
	}
}
