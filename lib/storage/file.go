// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// tempPrefix marks in-flight writes. List skips them.
const tempPrefix = ".reliquery-tmp-"

// FileDriver stores each object as a file beneath a root directory.
// Configured with type "File". Writes go to a temporary file in the
// target directory and are renamed into place.
type FileDriver struct {
	root string
}

// NewFileDriver creates root if needed and returns a driver rooted
// there.
func NewFileDriver(root string) (*FileDriver, error) {
	if root == "" {
		return nil, fmt.Errorf("storage: file driver root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating %s: %w", root, err)
	}
	return &FileDriver{root: root}, nil
}

// Root returns the driver's root directory.
func (d *FileDriver) Root() string { return d.root }

func (d *FileDriver) path(key string) string {
	return filepath.Join(d.root, filepath.FromSlash(key))
}

func (d *FileDriver) Get(_ context.Context, key string) ([]byte, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("%w: invalid key %q", ErrNotFound, key)
	}
	data, err := os.ReadFile(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		var pathErr *fs.PathError
		// Reading a directory is a lookup of a non-object.
		if errors.As(err, &pathErr) && isDirectory(d.path(key)) {
			return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, key)
		}
		return nil, fmt.Errorf("storage: reading %s: %w", key, err)
	}
	return data, nil
}

func (d *FileDriver) Put(_ context.Context, key string, data []byte) error {
	if !validKey(key) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	finalPath := d.path(key)
	directory := filepath.Dir(finalPath)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("storage: creating directory for %s: %w", key, err)
	}

	tmpFile, err := os.CreateTemp(directory, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: creating temp file for %s: %w", key, err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("storage: writing %s: %w", key, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("storage: closing temp file for %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("storage: renaming into %s: %w", key, err)
	}

	success = true
	return nil
}

func (d *FileDriver) List(ctx context.Context, prefix string) ([]string, error) {
	start := d.root
	if prefix != "" {
		start = d.path(prefix)
	}

	var keys []string
	err := filepath.WalkDir(start, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == start {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tempPrefix) {
			return nil
		}
		relative, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(relative))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: listing %q: %w", prefix, err)
	}
	slices.Sort(keys)
	return keys, nil
}

func (d *FileDriver) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	if err := os.RemoveAll(d.path(key)); err != nil {
		return fmt.Errorf("storage: deleting %s: %w", key, err)
	}
	return nil
}

func (d *FileDriver) Close() error { return nil }

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
