// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package relic

import (
	"context"
	"errors"
	"fmt"

	"github.com/The-Dev-Effect/reliquery/lib/clock"
	"github.com/The-Dev-Effect/reliquery/lib/digest"
	"github.com/The-Dev-Effect/reliquery/lib/reliquery"
	"github.com/The-Dev-Effect/reliquery/lib/schema"
	"github.com/The-Dev-Effect/reliquery/lib/storage"
)

// ErrInvalidID is returned for a relic or item name that cannot be a
// single storage path segment: empty, "." or "..", or containing "/".
var ErrInvalidID = errors.New("relic: invalid id")

// Config holds the parameters for Open.
type Config struct {
	Name    string
	Type    string
	Storage *storage.Storage

	// Clock stamps metadata documents. Defaults to clock.Real().
	Clock clock.Clock
}

// Relic is a handle on one relic. Methods are safe for concurrent use
// to the extent the underlying storage is.
type Relic struct {
	name      string
	relicType string
	storage   *storage.Storage
	clock     clock.Clock
}

// Open returns a handle on the relic, creating its exists marker if
// the relic is new.
func Open(ctx context.Context, cfg Config) (*Relic, error) {
	if cfg.Name == "" || cfg.Type == "" {
		return nil, fmt.Errorf("%w: relic name and type are required", ErrInvalidID)
	}
	if !storage.ValidSegment(cfg.Name) || !storage.ValidSegment(cfg.Type) {
		return nil, fmt.Errorf("%w: relic %q of type %q", ErrInvalidID, cfg.Name, cfg.Type)
	}
	if cfg.Storage == nil {
		return nil, errors.New("relic: storage is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	r := &Relic{name: cfg.Name, relicType: cfg.Type, storage: cfg.Storage, clock: cfg.Clock}
	if err := r.storage.EnsureRelic(ctx, r.relicType, r.name); err != nil {
		return nil, fmt.Errorf("relic %s/%s: %w", r.relicType, r.name, err)
	}
	return r, nil
}

// FromHandle opens the relic a query handle refers to. The handle's
// backend must be a *storage.Storage.
func FromHandle(ctx context.Context, handle reliquery.Handle, clk clock.Clock) (*Relic, error) {
	backend, ok := handle.Backend.(*storage.Storage)
	if !ok {
		return nil, fmt.Errorf("relic %s/%s: backend %T is not a storage", handle.Type, handle.Name, handle.Backend)
	}
	return Open(ctx, Config{Name: handle.Name, Type: handle.Type, Storage: backend, Clock: clk})
}

// Exists reports whether a relic has been created on s.
func Exists(ctx context.Context, s *storage.Storage, relicType, name string) (bool, error) {
	return s.RelicExists(ctx, relicType, name)
}

func (r *Relic) Name() string              { return r.name }
func (r *Relic) Type() string              { return r.relicType }
func (r *Relic) Storage() *storage.Storage { return r.storage }

func (r *Relic) itemPath(kind, item string) storage.Path {
	return storage.ItemPath(r.relicType, r.name, kind, item)
}

func validID(item string) error {
	if !storage.ValidSegment(item) {
		return fmt.Errorf("%w: item %q", ErrInvalidID, item)
	}
	return nil
}

// writeMetadata stores the metadata document for one item.
func (r *Relic) writeMetadata(ctx context.Context, kind, item string, size int64, shape *string, sum string) error {
	record := schema.Metadata{
		Name:         item,
		DataKind:     kind,
		RelicName:    r.name,
		RelicType:    r.relicType,
		Size:         schema.Float(float64(size)),
		Shape:        shape,
		Digest:       sum,
		LastModified: schema.FormatTimestamp(r.clock.Now()),
	}
	if err := r.storage.PutMetadata(ctx, record); err != nil {
		return fmt.Errorf("relic %s/%s: %s %q metadata: %w", r.relicType, r.name, kind, item, err)
	}
	return nil
}

// putBytes stores data as a compressed payload and records its
// metadata.
func (r *Relic) putBytes(ctx context.Context, kind, item string, data []byte, shape *string) error {
	if err := validID(item); err != nil {
		return err
	}
	if err := r.storage.PutBinary(ctx, r.itemPath(kind, item), data); err != nil {
		return fmt.Errorf("relic %s/%s: put %s %q: %w", r.relicType, r.name, kind, item, err)
	}
	return r.writeMetadata(ctx, kind, item, int64(len(data)), shape, digest.Sum(data).String())
}

func (r *Relic) getBytes(ctx context.Context, kind, item string) ([]byte, error) {
	if err := validID(item); err != nil {
		return nil, err
	}
	data, err := r.storage.GetBinary(ctx, r.itemPath(kind, item))
	if err != nil {
		return nil, fmt.Errorf("relic %s/%s: get %s %q: %w", r.relicType, r.name, kind, item, err)
	}
	return data, nil
}

// putFile copies a local file into the relic and records its metadata.
func (r *Relic) putFile(ctx context.Context, kind, item, localPath string) error {
	if err := validID(item); err != nil {
		return err
	}
	sum, size, err := digest.File(localPath)
	if err != nil {
		return fmt.Errorf("relic %s/%s: put %s %q: %w", r.relicType, r.name, kind, item, err)
	}
	if err := r.storage.PutFile(ctx, r.itemPath(kind, item), localPath); err != nil {
		return fmt.Errorf("relic %s/%s: put %s %q: %w", r.relicType, r.name, kind, item, err)
	}
	return r.writeMetadata(ctx, kind, item, size, nil, sum.String())
}

func (r *Relic) getFile(ctx context.Context, kind, item, localPath string) error {
	if err := validID(item); err != nil {
		return err
	}
	if err := r.storage.GetFile(ctx, r.itemPath(kind, item), localPath); err != nil {
		return fmt.Errorf("relic %s/%s: get %s %q: %w", r.relicType, r.name, kind, item, err)
	}
	return nil
}

// Get reads any item's payload by kind.
func (r *Relic) Get(ctx context.Context, kind, item string) ([]byte, error) {
	return r.getBytes(ctx, kind, item)
}

// ErrDigestMismatch is returned by Verify when a payload no longer
// matches the digest recorded at write time.
var ErrDigestMismatch = errors.New("relic: digest mismatch")

// Verify re-reads an item and checks it against the digest in its
// metadata document.
func (r *Relic) Verify(ctx context.Context, kind, item string) error {
	record, err := r.storage.GetMetadata(ctx, r.relicType, r.name, kind, item)
	if err != nil {
		return fmt.Errorf("relic %s/%s: verify %s %q: %w", r.relicType, r.name, kind, item, err)
	}
	want, err := digest.Parse(record.Digest)
	if err != nil {
		return fmt.Errorf("relic %s/%s: verify %s %q: %w", r.relicType, r.name, kind, item, err)
	}
	data, err := r.getBytes(ctx, kind, item)
	if err != nil {
		return err
	}
	if got := digest.Sum(data); got != want {
		return fmt.Errorf("%w: %s %q is %s, recorded %s", ErrDigestMismatch, kind, item, got, want)
	}
	return nil
}

// List returns the item names of one data kind, sorted.
func (r *Relic) List(ctx context.Context, kind string) ([]string, error) {
	names, err := r.storage.ListKeys(ctx, storage.RelicPath(r.relicType, r.name).Append(kind))
	if err != nil {
		return nil, fmt.Errorf("relic %s/%s: list %s: %w", r.relicType, r.name, kind, err)
	}
	return names, nil
}

// AddTag merges tags into the relic's tag mapping and returns the
// result.
func (r *Relic) AddTag(ctx context.Context, tags map[string]string) (map[string]string, error) {
	for key := range tags {
		if key == "" {
			return nil, fmt.Errorf("%w: empty tag key", ErrInvalidID)
		}
	}
	merged, err := r.storage.MergeTags(ctx, storage.RelicPath(r.relicType, r.name), tags)
	if err != nil {
		return nil, fmt.Errorf("relic %s/%s: add tag: %w", r.relicType, r.name, err)
	}
	return merged, nil
}

// ListTags returns the relic's tag mapping.
func (r *Relic) ListTags(ctx context.Context) (map[string]string, error) {
	tags, err := r.storage.GetTags(ctx, storage.RelicPath(r.relicType, r.name))
	if err != nil {
		return nil, fmt.Errorf("relic %s/%s: list tags: %w", r.relicType, r.name, err)
	}
	return tags, nil
}

// Describe returns every item's metadata grouped by data kind.
func (r *Relic) Describe(ctx context.Context) (map[string][]schema.Metadata, error) {
	described, err := r.storage.Describe(ctx, r.relicType, r.name)
	if err != nil {
		return nil, fmt.Errorf("relic %s/%s: describe: %w", r.relicType, r.name, err)
	}
	return described, nil
}
