// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted by Load. ElementConfigEnv is the
// older name and is read only when ConfigEnv is unset.
const (
	ConfigEnv        = "RELIQUERY_CONFIG"
	ElementConfigEnv = "ELEMENT_CONFIG"
)

// Storage types understood by lib/storage.
const (
	TypeFile   = "File"
	TypeMemory = "Memory"
	TypeBolt   = "Bolt"
	TypeS3     = "S3"
)

// DefaultStorageName names the storage written into a freshly created
// configuration file.
const DefaultStorageName = "default"

// Config is the set of configured storages. The file maps each storage
// name to a storage block:
//
//	local:
//	  storage:
//	    type: File
//	    args:
//	      root: ${HOME}/reliquery
//	    compression: zstd
//
// JSON in the same shape is accepted, with comments and trailing
// commas.
type Config struct {
	// Source is the file the configuration came from. Empty for
	// inline and default configurations.
	Source string

	// Storages holds each storage block by name.
	Storages map[string]StorageConfig

	// Order lists storage names in file order. Backends are opened and
	// reconciled in this order.
	Order []string
}

// StorageConfig describes one storage backend.
type StorageConfig struct {
	// Type is one of TypeFile, TypeMemory, TypeBolt, TypeS3.
	Type string `yaml:"type" json:"type"`

	// Args are type-specific settings. File: root. Bolt: path. S3:
	// endpoint, s3_bucket, prefix, region, s3_signed, access_key,
	// secret_key, insecure.
	Args map[string]any `yaml:"args,omitempty" json:"args,omitempty"`

	// Compression is none, lz4, zstd, or bg4_lz4. Empty means none.
	Compression string `yaml:"compression,omitempty" json:"compression,omitempty"`
}

type storageEntry struct {
	Storage StorageConfig `yaml:"storage" json:"storage"`
}

// Default returns a configuration with a single File storage rooted
// at root.
func Default(root string) *Config {
	return &Config{
		Storages: map[string]StorageConfig{
			DefaultStorageName: {
				Type: TypeFile,
				Args: map[string]any{"root": root},
			},
		},
		Order: []string{DefaultStorageName},
	}
}

// DefaultDir returns ~/reliquery, the default root for the
// configuration file and the default File storage.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: locating home directory: %w", err)
	}
	return filepath.Join(home, "reliquery"), nil
}

// Load resolves the configuration from the environment:
//
//   - RELIQUERY_CONFIG (or ELEMENT_CONFIG) holding inline JSON is
//     parsed directly;
//   - RELIQUERY_CONFIG (or ELEMENT_CONFIG) holding anything else is a
//     file path;
//   - otherwise ~/reliquery/config is read, and created with the
//     default File storage if it does not exist.
func Load() (*Config, error) {
	value, variable := os.Getenv(ConfigEnv), ConfigEnv
	if value == "" {
		value, variable = os.Getenv(ElementConfigEnv), ElementConfigEnv
	}
	if value != "" {
		if looksInline([]byte(value)) {
			cfg, err := Parse([]byte(value))
			if err != nil {
				return nil, fmt.Errorf("config: %s: %w", variable, err)
			}
			return cfg, nil
		}
		return LoadFile(value)
	}

	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return LoadOrCreate(filepath.Join(dir, "config"), dir)
}

// LoadOrCreate reads path, first writing a default configuration with
// a File storage rooted at root if path does not exist.
func LoadOrCreate(path, root string) (*Config, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := WriteFile(path, Default(root)); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return LoadFile(path)
}

// LoadFile reads and validates a configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// Parse decodes YAML or JSON(C) configuration text, expands ${VAR}
// references in string arguments, and validates the result.
func Parse(data []byte) (*Config, error) {
	if looksInline(data) {
		// JSON is a subset of YAML once comments and trailing commas
		// are gone, so one decoder handles both formats.
		data = jsonc.ToJSON(data)
	}

	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, err
	}

	cfg := &Config{Storages: make(map[string]StorageConfig)}
	if document.Kind == 0 {
		return cfg, cfg.Validate()
	}
	if document.Kind != yaml.DocumentNode || len(document.Content) != 1 || document.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level must map storage names to storage blocks")
	}

	mapping := document.Content[0]
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		name := mapping.Content[i].Value
		var entry storageEntry
		if err := mapping.Content[i+1].Decode(&entry); err != nil {
			return nil, fmt.Errorf("storage %q: %w", name, err)
		}
		if _, duplicate := cfg.Storages[name]; duplicate {
			return nil, fmt.Errorf("storage %q is defined twice", name)
		}
		cfg.Storages[name] = entry.Storage
		cfg.Order = append(cfg.Order, name)
	}

	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteFile writes cfg as indented JSON, which every reliquery client
// can read. Parent directories are created.
func WriteFile(path string, cfg *Config) error {
	document := make(map[string]storageEntry, len(cfg.Storages))
	for name, storage := range cfg.Storages {
		document[name] = storageEntry{Storage: storage}
	}
	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func looksInline(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Validate checks storage types and compression names.
func (c *Config) Validate() error {
	var errs []error
	knownTypes := []string{TypeFile, TypeMemory, TypeBolt, TypeS3}
	knownCompression := []string{"", "none", "lz4", "zstd", "bg4_lz4"}

	for _, name := range c.Order {
		storage := c.Storages[name]
		if name == "" {
			errs = append(errs, fmt.Errorf("storage names must not be empty"))
		}
		if strings.Contains(name, "/") {
			errs = append(errs, fmt.Errorf("storage %q: name must not contain '/'", name))
		}
		if !slices.Contains(knownTypes, storage.Type) {
			errs = append(errs, fmt.Errorf("storage %q: type must be one of %v, got %q", name, knownTypes, storage.Type))
		}
		if !slices.Contains(knownCompression, storage.Compression) {
			errs = append(errs, fmt.Errorf("storage %q: unknown compression %q", name, storage.Compression))
		}
		if storage.Type == TypeS3 && storage.String("s3_bucket", "") == "" {
			errs = append(errs, fmt.Errorf("storage %q: S3 requires args.s3_bucket", name))
		}
		if storage.Type == TypeBolt && storage.String("path", "") == "" {
			errs = append(errs, fmt.Errorf("storage %q: Bolt requires args.path", name))
		}
	}
	return errors.Join(errs...)
}

// String returns a string argument, or fallback when it is absent.
// Non-string scalars are formatted.
func (s StorageConfig) String(key, fallback string) string {
	value, ok := s.Args[key]
	if !ok || value == nil {
		return fallback
	}
	if text, ok := value.(string); ok {
		return text
	}
	return fmt.Sprint(value)
}

// Bool returns a boolean argument, or fallback when it is absent.
// Strings such as "true" and "0" are accepted.
func (s StorageConfig) Bool(key string, fallback bool) (bool, error) {
	value, ok := s.Args[key]
	if !ok || value == nil {
		return fallback, nil
	}
	switch typed := value.(type) {
	case bool:
		return typed, nil
	case string:
		parsed, err := strconv.ParseBool(typed)
		if err != nil {
			return false, fmt.Errorf("config: args.%s: %w", key, err)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("config: args.%s must be a boolean, got %T", key, value)
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in string
// arguments.
func (c *Config) expandVariables() {
	for name, storage := range c.Storages {
		for key, value := range storage.Args {
			if text, ok := value.(string); ok {
				storage.Args[key] = expandVars(text)
			}
		}
		c.Storages[name] = storage
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}
