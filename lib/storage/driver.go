// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"slices"
	"strings"
)

// ErrNotFound is returned (wrapped) when a key does not exist.
var ErrNotFound = errors.New("storage: not found")

// Driver is a flat key/value object store. Keys are slash-separated
// paths relative to the driver's root, with no leading slash.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Get returns the object stored at key, or an error wrapping
	// ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the object at key. Readers never observe a
	// partially written object.
	Put(ctx context.Context, key string, data []byte) error

	// List returns every key beneath prefix (every key when prefix is
	// empty), sorted. A prefix names a directory: "a/b" matches
	// "a/b/c" but not "a/bc".
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the object at key and every object beneath it.
	// Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases driver resources.
	Close() error
}

// Path identifies an object as a sequence of segments, for example
// [relic_type, relic_name, "arrays", item].
type Path []string

// Key joins the segments into a driver key.
func (p Path) Key() string { return strings.Join(p, "/") }

func (p Path) String() string { return p.Key() }

// ValidSegment reports whether segment can name one level of a path:
// non-empty, not "." or "..", and free of the separator.
func ValidSegment(segment string) bool {
	return segment != "" && segment != "." && segment != ".." && !strings.Contains(segment, "/")
}

// validSegments reports whether every segment of p is valid. A name
// containing "/" would otherwise silently become extra segments.
func (p Path) validSegments() bool {
	for _, segment := range p {
		if !ValidSegment(segment) {
			return false
		}
	}
	return true
}

// Append returns a new path with segments added.
func (p Path) Append(segments ...string) Path {
	return append(slices.Clip(p), segments...)
}

// splitKey is the inverse of Path.Key.
func splitKey(key string) Path {
	if key == "" {
		return nil
	}
	return strings.Split(key, "/")
}

// underPrefix reports whether key lies beneath the directory prefix.
func underPrefix(key, prefix string) bool {
	if prefix == "" {
		return true
	}
	return key == prefix || strings.HasPrefix(key, prefix+"/")
}

// validKey rejects keys that could escape a driver root or collide
// with the path separator.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}
	return true
}
