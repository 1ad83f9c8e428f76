// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryDriver keeps objects in a map. Configured with type "Memory";
// contents vanish when the process exits.
type MemoryDriver struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryDriver returns an empty in-memory driver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{objects: make(map[string][]byte)}
}

func (d *MemoryDriver) Get(_ context.Context, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	data, ok := d.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return slices.Clone(data), nil
}

func (d *MemoryDriver) Put(_ context.Context, key string, data []byte) error {
	if !validKey(key) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.objects[key] = slices.Clone(data)
	return nil
}

func (d *MemoryDriver) List(_ context.Context, prefix string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var keys []string
	for key := range d.objects {
		if underPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (d *MemoryDriver) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for existing := range d.objects {
		if underPrefix(existing, key) {
			delete(d.objects, existing)
		}
	}
	return nil
}

func (d *MemoryDriver) Close() error { return nil }
