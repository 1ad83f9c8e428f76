// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package reliquery

import (
	"context"
	"fmt"

	"github.com/The-Dev-Effect/reliquery/lib/catalog"
	"github.com/The-Dev-Effect/reliquery/lib/schema"
	"github.com/The-Dev-Effect/reliquery/lib/storage"
)

// locked runs fn with the mutex held, refusing once closed.
func (r *Reliquery) locked(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed
	}
	return fn()
}

// Query executes one SQL statement against the catalog.
func (r *Reliquery) Query(ctx context.Context, statement string, args ...any) (catalog.Rows, error) {
	var rows catalog.Rows
	err := r.locked(func() error {
		var err error
		rows, err = r.catalog.Query(ctx, statement, args...)
		return err
	})
	return rows, err
}

// RelicsByTag returns a handle for every relic tagged key=value.
func (r *Reliquery) RelicsByTag(ctx context.Context, key, value string) ([]Handle, error) {
	var handles []Handle
	err := r.locked(func() error {
		relics, err := r.catalog.RelicsByTag(ctx, key, value)
		if err != nil {
			return err
		}
		handles = r.handles(relics)
		return nil
	})
	return handles, err
}

func (r *Reliquery) handles(relics []schema.RelicData) []Handle {
	handles := make([]Handle, 0, len(relics))
	for _, relic := range relics {
		backend, ok := r.byName[relic.StorageName]
		if !ok {
			r.logger.Warn("cached relic on unknown backend",
				"storage_name", relic.StorageName, "relic_type", relic.Type, "relic_name", relic.Name)
			continue
		}
		handles = append(handles, Handle{Name: relic.Name, Type: relic.Type, Backend: backend})
	}
	return handles
}

// RelicTypesByStorage lists the relic types cached for one backend.
func (r *Reliquery) RelicTypesByStorage(ctx context.Context, storageName string) ([]string, error) {
	var types []string
	err := r.locked(func() error {
		var err error
		types, err = r.catalog.RelicTypesByStorage(ctx, storageName)
		return err
	})
	return types, err
}

// RelicNamesByStorageAndType lists the relics of one type on one
// backend.
func (r *Reliquery) RelicNamesByStorageAndType(ctx context.Context, storageName, relicType string) ([]RelicName, error) {
	var names []RelicName
	err := r.locked(func() error {
		found, err := r.catalog.RelicNamesByStorageAndType(ctx, storageName, relicType)
		if err != nil {
			return err
		}
		names = make([]RelicName, 0, len(found))
		for _, name := range found {
			names = append(names, RelicName{Name: name, Type: relicType, StorageName: storageName})
		}
		return nil
	})
	return names, err
}

// RelicNames lists every cached relic ordered by storage, type, and
// name.
func (r *Reliquery) RelicNames(ctx context.Context) ([]RelicName, error) {
	var names []RelicName
	err := r.locked(func() error {
		relics, err := r.catalog.Relics(ctx)
		if err != nil {
			return err
		}
		names = make([]RelicName, 0, len(relics))
		for _, relic := range relics {
			names = append(names, RelicName{Name: relic.Name, Type: relic.Type, StorageName: relic.StorageName})
		}
		return nil
	})
	return names, err
}

// UniqueRelicTypesAndStorages lists each distinct (type, storage) pair.
func (r *Reliquery) UniqueRelicTypesAndStorages(ctx context.Context) ([]catalog.TypeStorage, error) {
	var pairs []catalog.TypeStorage
	err := r.locked(func() error {
		var err error
		pairs, err = r.catalog.UniqueRelicTypesAndStorages(ctx)
		return err
	})
	return pairs, err
}

// Summary is the cached view of one relic.
type Summary struct {
	Relic    schema.RelicData  `json:"relic"`
	Tags     map[string]string `json:"tags"`
	Metadata []schema.Metadata `json:"metadata"`
}

// Describe returns the cached identity, tags, and metadata of one
// relic. The boolean is false when the relic is not cached.
func (r *Reliquery) Describe(ctx context.Context, name, relicType, storageName string) (Summary, bool, error) {
	var (
		summary Summary
		found   bool
	)
	err := r.locked(func() error {
		relic, ok, err := r.catalog.RelicDataByName(ctx, name, relicType, storageName)
		if err != nil || !ok {
			return err
		}
		found = true
		summary.Relic = relic

		entries, err := r.catalog.AllTagsFromRelic(ctx, relic.ID)
		if err != nil {
			return err
		}
		summary.Tags = make(map[string]string, len(entries))
		for _, entry := range entries {
			summary.Tags[entry.Key] = entry.Value
		}

		summary.Metadata, err = r.catalog.MetadataByRelic(ctx, relic.ID)
		return err
	})
	return summary, found, err
}

// RemoveRelic deletes a relic's stored tree from its backend and then
// its identity, with metadata and tags, from the catalog. It returns
// the number of catalog identities removed: 1, or 0 for a handle whose
// relic is no longer cached. The catalog is left untouched when the
// backend removal fails.
func (r *Reliquery) RemoveRelic(ctx context.Context, handle Handle) (int, error) {
	if handle.Backend == nil {
		return 0, fmt.Errorf("reliquery: remove relic %s/%s: handle has no backend", handle.Type, handle.Name)
	}
	var removed int
	err := r.locked(func() error {
		storageName := handle.Backend.Name()
		if err := handle.Backend.RemoveRelic(ctx, storage.RelicPath(handle.Type, handle.Name)); err != nil {
			return &BackendError{Backend: storageName, Op: "remove relic", Err: err}
		}
		relic, found, err := r.catalog.RelicDataByName(ctx, handle.Name, handle.Type, storageName)
		if err != nil || !found {
			return err
		}
		removed, err = r.catalog.DeleteRelic(ctx, relic.ID)
		if err != nil {
			return err
		}
		r.logger.Info("relic removed", "backend", storageName,
			"relic_type", handle.Type, "relic_name", handle.Name)
		return nil
	})
	return removed, err
}
