// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package relic reads and writes the items of one relic.
//
// A relic is a named bundle of research artifacts under
// [relic_type, relic_name] on one storage. Items are grouped by data
// kind (text, json, arrays, html, images, files, notebooks, videos,
// pandasdf) and stored at [relic_type, relic_name, kind, item]. Every
// write also stores a metadata document at
// [relic_type, relic_name, "metadata", kind, item] recording the
// payload size, a shape where one applies, a BLAKE3 digest, and the
// write time; reconciliation in lib/reliquery reads those documents
// into the catalog.
//
// Payloads are opaque bytes. Arrays, images, and data frames are
// stored exactly as the caller encoded them; only the shape the caller
// supplies is recorded.
package relic
