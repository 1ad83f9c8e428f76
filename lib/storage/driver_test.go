// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// driverFactories builds each locally runnable driver. S3 needs a
// live endpoint and is exercised through the same contract by
// integration environments only.
func driverFactories(t *testing.T) map[string]func() Driver {
	t.Helper()
	return map[string]func() Driver{
		"memory": func() Driver { return NewMemoryDriver() },
		"file": func() Driver {
			driver, err := NewFileDriver(filepath.Join(t.TempDir(), "relics"))
			if err != nil {
				t.Fatalf("NewFileDriver: %v", err)
			}
			return driver
		},
		"bolt": func() Driver {
			driver, err := OpenBoltDriver(filepath.Join(t.TempDir(), "relics.db"), nil)
			if err != nil {
				t.Fatalf("OpenBoltDriver: %v", err)
			}
			t.Cleanup(func() { driver.Close() })
			return driver
		},
	}
}

func TestDriverContract(t *testing.T) {
	for name, factory := range driverFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			driver := factory()

			if _, err := driver.Get(ctx, "test/r1/text/a"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(missing) = %v, want ErrNotFound", err)
			}

			objects := map[string]string{
				"test/r1/exists":          "r1",
				"test/r1/text/a":          "alpha",
				"test/r1/text/b":          "beta",
				"test/r10/exists":         "r10",
				"other/r2/arrays/weights": "w",
			}
			for key, value := range objects {
				if err := driver.Put(ctx, key, []byte(value)); err != nil {
					t.Fatalf("Put(%s): %v", key, err)
				}
			}

			data, err := driver.Get(ctx, "test/r1/text/a")
			if err != nil || string(data) != "alpha" {
				t.Fatalf("Get = %q, %v; want alpha", data, err)
			}

			if err := driver.Put(ctx, "test/r1/text/a", []byte("ALPHA")); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			data, _ = driver.Get(ctx, "test/r1/text/a")
			if string(data) != "ALPHA" {
				t.Errorf("after overwrite Get = %q, want ALPHA", data)
			}

			all, err := driver.List(ctx, "")
			if err != nil {
				t.Fatalf("List(all): %v", err)
			}
			if len(all) != len(objects) || !slices.IsSorted(all) {
				t.Errorf("List(all) = %v, want %d sorted keys", all, len(objects))
			}

			// "test/r1" must not match "test/r10".
			scoped, err := driver.List(ctx, "test/r1")
			if err != nil {
				t.Fatalf("List(test/r1): %v", err)
			}
			want := []string{"test/r1/exists", "test/r1/text/a", "test/r1/text/b"}
			if !slices.Equal(scoped, want) {
				t.Errorf("List(test/r1) = %v, want %v", scoped, want)
			}

			missing, err := driver.List(ctx, "nothing/here")
			if err != nil {
				t.Fatalf("List(missing): %v", err)
			}
			if len(missing) != 0 {
				t.Errorf("List(missing) = %v, want empty", missing)
			}

			if err := driver.Delete(ctx, "test/r1"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			remaining, _ := driver.List(ctx, "")
			wantRemaining := []string{"other/r2/arrays/weights", "test/r10/exists"}
			if !slices.Equal(remaining, wantRemaining) {
				t.Errorf("after Delete List = %v, want %v", remaining, wantRemaining)
			}
			if err := driver.Delete(ctx, "test/r1"); err != nil {
				t.Errorf("Delete(missing) = %v, want nil", err)
			}
		})
	}
}

func TestDriverRejectsEscapingKeys(t *testing.T) {
	for name, factory := range driverFactories(t) {
		driver := factory()
		for _, key := range []string{"", "/abs", "a/../b", "a//b", "./a"} {
			if err := driver.Put(context.Background(), key, []byte("x")); err == nil {
				t.Errorf("%s: Put(%q) succeeded", name, key)
			}
		}
	}
}

func TestFileDriverSkipsTempFiles(t *testing.T) {
	root := t.TempDir()
	driver, err := NewFileDriver(root)
	if err != nil {
		t.Fatalf("NewFileDriver: %v", err)
	}
	ctx := context.Background()
	if err := driver.Put(ctx, "test/r1/exists", []byte("r1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	stray := filepath.Join(root, "test", "r1", tempPrefix+"123")
	if err := os.WriteFile(stray, []byte("partial"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	keys, err := driver.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Equal(keys, []string{"test/r1/exists"}) {
		t.Errorf("List = %v, want only the committed object", keys)
	}

	if _, err := driver.Get(ctx, "test/r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(directory) = %v, want ErrNotFound", err)
	}
}

func TestPathHelpers(t *testing.T) {
	base := RelicPath("test", "r1")
	item := base.Append("text", "a")
	other := base.Append("json", "b")
	if item.Key() != "test/r1/text/a" || other.Key() != "test/r1/json/b" {
		t.Errorf("Append aliasing: %s, %s", item, other)
	}
	if got := MetadataPath("test", "r1", "text", "a").Key(); got != "test/r1/metadata/text/a" {
		t.Errorf("MetadataPath = %s", got)
	}
	if got := TagsPath("test", "r1").Key(); got != "test/r1/tags" {
		t.Errorf("TagsPath = %s", got)
	}
}
