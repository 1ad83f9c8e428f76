// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

var bucketObjects = []byte("objects")

// BoltDriver keeps every object of a store in one bbolt database file.
// Configured with type "Bolt".
type BoltDriver struct {
	db     *bbolt.DB
	path   string
	logger *slog.Logger
}

// OpenBoltDriver opens (creating if needed) the database at path.
func OpenBoltDriver(path string, logger *slog.Logger) (*BoltDriver, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: bolt driver path is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: opening bolt database %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketObjects)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: creating bucket in %s: %w", path, err)
	}
	logger.Debug("opened bolt store", "path", path)
	return &BoltDriver{db: db, path: path, logger: logger}, nil
}

func (d *BoltDriver) Get(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := d.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketObjects).Get([]byte(key))
		if value == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		// Values are only valid for the life of the transaction.
		data = bytes.Clone(value)
		return nil
	})
	return data, err
}

func (d *BoltDriver) Put(_ context.Context, key string, data []byte) error {
	if !validKey(key) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return d.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketObjects).Put([]byte(key), data); err != nil {
			return fmt.Errorf("storage: putting %s: %w", key, err)
		}
		return nil
	})
}

func (d *BoltDriver) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := d.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(bucketObjects).Cursor()
		for key, _ := cursor.Seek([]byte(prefix)); key != nil && bytes.HasPrefix(key, []byte(prefix)); key, _ = cursor.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if underPrefix(string(key), prefix) {
				keys = append(keys, string(key))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: listing %q: %w", prefix, err)
	}
	return keys, nil
}

func (d *BoltDriver) Delete(_ context.Context, key string) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketObjects)
		var doomed [][]byte
		cursor := bucket.Cursor()
		for existing, _ := cursor.Seek([]byte(key)); existing != nil && bytes.HasPrefix(existing, []byte(key)); existing, _ = cursor.Next() {
			if underPrefix(string(existing), key) {
				doomed = append(doomed, bytes.Clone(existing))
			}
		}
		for _, existing := range doomed {
			if err := bucket.Delete(existing); err != nil {
				return fmt.Errorf("storage: deleting %s: %w", existing, err)
			}
		}
		return nil
	})
}

func (d *BoltDriver) Close() error {
	d.logger.Debug("closing bolt store", "path", d.path)
	return d.db.Close()
}
