// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/The-Dev-Effect/reliquery/lib/config"
)

// Open constructs the storage described by one configuration block.
func Open(name string, cfg config.StorageConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	compression, err := ParseCompressionTag(cfg.Compression)
	if err != nil {
		return nil, err
	}
	driver, err := openDriver(name, cfg, logger)
	if err != nil {
		return nil, err
	}
	storage, err := New(Config{
		Name:        name,
		Driver:      driver,
		Compression: compression,
		Logger:      logger,
	})
	if err != nil {
		driver.Close()
		return nil, err
	}
	return storage, nil
}

func openDriver(name string, cfg config.StorageConfig, logger *slog.Logger) (Driver, error) {
	switch cfg.Type {
	case config.TypeFile:
		root := cfg.String("root", "")
		if root == "" {
			dir, err := config.DefaultDir()
			if err != nil {
				return nil, err
			}
			root = dir
		}
		return NewFileDriver(root)

	case config.TypeMemory:
		return NewMemoryDriver(), nil

	case config.TypeBolt:
		path := cfg.String("path", "")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("storage %s: %w", name, err)
		}
		return OpenBoltDriver(path, logger)

	case config.TypeS3:
		signed, err := cfg.Bool("s3_signed", true)
		if err != nil {
			return nil, fmt.Errorf("storage %s: %w", name, err)
		}
		insecure, err := cfg.Bool("insecure", false)
		if err != nil {
			return nil, fmt.Errorf("storage %s: %w", name, err)
		}
		return NewS3Driver(S3Config{
			Endpoint:  cfg.String("endpoint", ""),
			Bucket:    cfg.String("s3_bucket", ""),
			Prefix:    cfg.String("prefix", ""),
			Region:    cfg.String("region", ""),
			Signed:    signed,
			AccessKey: cfg.String("access_key", ""),
			SecretKey: cfg.String("secret_key", ""),
			Insecure:  insecure,
		}, logger)

	default:
		return nil, fmt.Errorf("storage %s: unknown type %q", name, cfg.Type)
	}
}

// OpenAll opens every configured storage in configuration order. A
// storage that fails to open is logged and skipped; the error lists
// every failure. Callers receive the storages that did open either
// way.
func OpenAll(cfg *config.Config, logger *slog.Logger) ([]*Storage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var (
		storages []*Storage
		errs     []error
	)
	for _, name := range cfg.Order {
		storage, err := Open(name, cfg.Storages[name], logger)
		if err != nil {
			logger.Error("storage unavailable", "storage", name, "error", err)
			errs = append(errs, err)
			continue
		}
		storages = append(storages, storage)
	}
	return storages, errors.Join(errs...)
}
