// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the domain types shared by every reliquery
// layer: relic identities, per-item metadata records, relic tags, the
// set of item data kinds, and the fixed timestamp format used on every
// backend.
//
// The types carry no behavior beyond validation and timestamp
// handling. The catalog stores them, the storage layer serializes them
// into backend documents, and the reconciliation engine moves them
// between the two.
//
// Timestamps travel as strings in the "MM/DD/YYYY HH:MM:SS" layout
// (UTC) because that is what backends persist. Every comparison parses
// them into time.Time first; see [ParseTimestamp].
//
// This package depends on no other reliquery packages.
package schema
