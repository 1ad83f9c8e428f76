// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage implements relic storage backends.
//
// A [Storage] is one named backend. It layers the relic key layout
// over a flat [Driver]:
//
//	<type>/<name>/exists                     marker written on relic creation
//	<type>/<name>/<kind>/<item>              item payload
//	<type>/<name>/metadata/<kind>/<item>     item metadata document
//	<type>/<name>/tags                       relic tag document
//
// Drivers exist for a local directory tree ([FileDriver]), process
// memory ([MemoryDriver]), a single bbolt file ([BoltDriver]), and
// S3-compatible object stores ([S3Driver]). [Open] and [OpenAll] build
// storages from lib/config blocks.
//
// Item payloads may be compressed per storage with LZ4, zstd, or
// byte-grouped LZ4; compressed payloads carry a small frame header and
// uncompressed payloads are stored verbatim, so a storage can change
// its compression setting without rewriting existing items.
//
// Metadata and tag documents are CBOR (lib/codec). JSON documents
// written by other clients are read transparently.
package storage
