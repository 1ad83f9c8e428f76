// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"slices"

	"github.com/The-Dev-Effect/reliquery/lib/schema"
)

// Storage is one named backend: a Driver plus the relic layout,
// payload compression, and document encoding on top of it. Storage
// satisfies the reconciliation engine's backend contract.
type Storage struct {
	name        string
	driver      Driver
	compression CompressionTag
	logger      *slog.Logger
}

// Config holds the parameters for a Storage.
type Config struct {
	// Name is the configured storage name, unique within a process.
	Name string

	// Driver holds the objects. Storage takes ownership and closes it.
	Driver Driver

	// Compression applies to item payloads written through PutBinary.
	// Markers and documents are never compressed.
	Compression CompressionTag

	// Logger receives operational messages. Nil discards them.
	Logger *slog.Logger
}

// New wraps a driver as a named storage.
func New(cfg Config) (*Storage, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("storage: Name is required")
	}
	if cfg.Driver == nil {
		return nil, fmt.Errorf("storage %s: Driver is required", cfg.Name)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Storage{
		name:        cfg.Name,
		driver:      cfg.Driver,
		compression: cfg.Compression,
		logger:      logger.With("storage", cfg.Name),
	}, nil
}

// Name returns the configured storage name.
func (s *Storage) Name() string { return s.name }

// Compression returns the payload compression for this storage.
func (s *Storage) Compression() CompressionTag { return s.compression }

// Close closes the driver.
func (s *Storage) Close() error { return s.driver.Close() }

func (s *Storage) key(path Path) (string, error) {
	key := path.Key()
	if !path.validSegments() || !validKey(key) {
		return "", fmt.Errorf("storage %s: invalid path %q", s.name, key)
	}
	return key, nil
}

// PutBinary writes an item payload, compressed per the storage
// configuration.
func (s *Storage) PutBinary(ctx context.Context, path Path, data []byte) error {
	return s.PutBinaryCompressed(ctx, path, data, s.compression)
}

// PutBinaryCompressed writes an item payload with an explicit
// compression, overriding the storage default.
func (s *Storage) PutBinaryCompressed(ctx context.Context, path Path, data []byte, tag CompressionTag) error {
	key, err := s.key(path)
	if err != nil {
		return err
	}
	encoded, err := encodePayload(data, tag)
	if err != nil {
		return fmt.Errorf("storage %s: encoding %s: %w", s.name, key, err)
	}
	return s.driver.Put(ctx, key, encoded)
}

// GetBinary reads an item payload, decompressing it if needed.
func (s *Storage) GetBinary(ctx context.Context, path Path) ([]byte, error) {
	key, err := s.key(path)
	if err != nil {
		return nil, err
	}
	stored, err := s.driver.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := decodePayload(stored)
	if err != nil {
		return nil, fmt.Errorf("storage %s: decoding %s: %w", s.name, key, err)
	}
	return data, nil
}

// PutText writes an uncompressed text object.
func (s *Storage) PutText(ctx context.Context, path Path, text string) error {
	key, err := s.key(path)
	if err != nil {
		return err
	}
	return s.driver.Put(ctx, key, []byte(text))
}

// GetText reads a text object. Payloads written through PutBinary are
// decoded first, so text items read back either way.
func (s *Storage) GetText(ctx context.Context, path Path) (string, error) {
	data, err := s.GetBinary(ctx, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PutFile copies a local file into the store as an item payload.
func (s *Storage) PutFile(ctx context.Context, path Path, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("storage %s: reading %s: %w", s.name, localPath, err)
	}
	return s.PutBinary(ctx, path, data)
}

// GetFile writes an item payload to a local file.
func (s *Storage) GetFile(ctx context.Context, path Path, localPath string) error {
	data, err := s.GetBinary(ctx, path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return fmt.Errorf("storage %s: writing %s: %w", s.name, localPath, err)
	}
	return nil
}

// ListKeys returns the distinct immediate children of path, sorted.
// A missing path has no children.
func (s *Storage) ListKeys(ctx context.Context, path Path) ([]string, error) {
	if !path.validSegments() {
		return nil, fmt.Errorf("storage %s: invalid path %q", s.name, path.Key())
	}
	prefix := path.Key()
	keys, err := s.driver.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	depth := len(path)
	var children []string
	for _, key := range keys {
		segments := splitKey(key)
		if len(segments) <= depth {
			continue
		}
		children = append(children, segments[depth])
	}
	slices.Sort(children)
	return slices.Compact(children), nil
}

// Exists reports whether an object is stored at path.
func (s *Storage) Exists(ctx context.Context, path Path) (bool, error) {
	key, err := s.key(path)
	if err != nil {
		return false, err
	}
	_, err = s.driver.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// EnsureRelic writes the relic's exists marker if absent.
func (s *Storage) EnsureRelic(ctx context.Context, relicType, relicName string) error {
	marker := RelicPath(relicType, relicName).Append(schema.ExistsSegment)
	exists, err := s.Exists(ctx, marker)
	if err != nil || exists {
		return err
	}
	s.logger.Debug("creating relic", "relic_type", relicType, "relic_name", relicName)
	return s.PutText(ctx, marker, relicName)
}

// RelicExists reports whether the relic's exists marker is present.
func (s *Storage) RelicExists(ctx context.Context, relicType, relicName string) (bool, error) {
	return s.Exists(ctx, RelicPath(relicType, relicName).Append(schema.ExistsSegment))
}

// RemoveRelic deletes everything beneath a relic path
// [relic_type, relic_name].
func (s *Storage) RemoveRelic(ctx context.Context, path Path) error {
	if len(path) != 2 {
		return fmt.Errorf("storage %s: relic path must be [type, name], got %q", s.name, path.Key())
	}
	key, err := s.key(path)
	if err != nil {
		return err
	}
	if err := s.driver.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.Info("removed relic", "relic_type", path[0], "relic_name", path[1])
	return nil
}

// AllRelicData enumerates every relic on the backend. A relic is any
// [type, name] pair with at least one object beneath it. Each range
// over the sequence lists the backend afresh.
func (s *Storage) AllRelicData(ctx context.Context) iter.Seq2[schema.RelicData, error] {
	return func(yield func(schema.RelicData, error) bool) {
		keys, err := s.driver.List(ctx, "")
		if err != nil {
			yield(schema.RelicData{}, fmt.Errorf("storage %s: listing relics: %w", s.name, err))
			return
		}
		seen := make(map[[2]string]bool)
		for _, key := range keys {
			segments := splitKey(key)
			if len(segments) < 3 {
				continue
			}
			identity := [2]string{segments[0], segments[1]}
			if seen[identity] {
				continue
			}
			seen[identity] = true
			if !yield(schema.RelicData{
				Name:        segments[1],
				Type:        segments[0],
				StorageName: s.name,
			}, nil) {
				return
			}
		}
	}
}

// RelicPath returns the root path of a relic.
func RelicPath(relicType, relicName string) Path {
	return Path{relicType, relicName}
}

// ItemPath returns the payload path of an item.
func ItemPath(relicType, relicName, kind, item string) Path {
	return Path{relicType, relicName, kind, item}
}

// MetadataPath returns the metadata document path of an item.
func MetadataPath(relicType, relicName, kind, item string) Path {
	return Path{relicType, relicName, schema.MetadataSegment, kind, item}
}

// TagsPath returns the tag document path of a relic.
func TagsPath(relicType, relicName string) Path {
	return Path{relicType, relicName, schema.TagsSegment}
}
