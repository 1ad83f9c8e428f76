// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the storage configuration: which backends
// exist, their types, their type-specific arguments, and their payload
// compression.
//
// [Load] resolves the configuration from RELIQUERY_CONFIG (a file path
// or inline JSON), the legacy ELEMENT_CONFIG variable, or
// ~/reliquery/config, which is created with a single File storage on
// first use. [LoadFile] and [Parse] read an explicit file or text.
//
// Files are YAML, or JSON with comments (tidwall/jsonc). String
// arguments may reference environment variables as ${VAR} or
// ${VAR:-default}.
//
// This package depends on no other reliquery packages.
package config
