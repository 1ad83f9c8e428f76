// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package reliquery

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/The-Dev-Effect/reliquery/lib/schema"
	"github.com/The-Dev-Effect/reliquery/lib/storage"
)

// Backend is the storage surface reconciliation and removal need.
// *storage.Storage implements it.
type Backend interface {
	// Name is the configured storage name. It is the storage_name of
	// every identity the backend reports.
	Name() string

	// AllRelicData enumerates relic identities. An error from the
	// sequence fails the backend for this pass.
	AllRelicData(ctx context.Context) iter.Seq2[schema.RelicData, error]

	// GetTags returns the tag mapping of the relic at
	// [relic_type, relic_name]; an empty map if it has none.
	GetTags(ctx context.Context, path storage.Path) (map[string]string, error)

	// AllMetadata enumerates item metadata documents. Errors from the
	// sequence are per-document; enumeration continues.
	AllMetadata(ctx context.Context) iter.Seq2[schema.Metadata, error]

	// RemoveRelic deletes every object of the relic at
	// [relic_type, relic_name].
	RemoveRelic(ctx context.Context, path storage.Path) error
}

var _ Backend = (*storage.Storage)(nil)

// ErrBackendTimeout is wrapped by a BackendError when a backend does
// not finish its snapshot within the configured timeout.
var ErrBackendTimeout = errors.New("backend timed out")

// BackendError reports a failed operation against one backend.
type BackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("reliquery: backend %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Handle refers to a relic on a live backend.
type Handle struct {
	Name    string
	Type    string
	Backend Backend
}

// RelicName returns the handle's identity without the backend value.
func (h Handle) RelicName() RelicName {
	name := RelicName{Name: h.Name, Type: h.Type}
	if h.Backend != nil {
		name.StorageName = h.Backend.Name()
	}
	return name
}

// RelicName identifies a relic by name, type, and storage.
type RelicName struct {
	Name        string `json:"relic_name"`
	Type        string `json:"relic_type"`
	StorageName string `json:"storage_name"`
}
