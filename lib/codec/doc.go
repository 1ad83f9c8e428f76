// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the document encoding used for metadata and
// tag documents on every storage backend.
//
// New documents are written as CBOR with Core Deterministic Encoding.
// Reads go through [UnmarshalDocument], which also accepts JSON so
// that relics written by JSON-producing clients stay readable.
//
// Types serialized through this package carry `json` struct tags.
// fxamacker/cbor reads `json` tags when `cbor` tags are absent, so one
// tag set controls field naming for both encodings.
package codec
