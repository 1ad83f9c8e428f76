// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package reliquery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/The-Dev-Effect/reliquery/lib/catalog"
	"github.com/The-Dev-Effect/reliquery/lib/clock"
	"github.com/The-Dev-Effect/reliquery/lib/config"
	"github.com/The-Dev-Effect/reliquery/lib/storage"
)

// DefaultBackendTimeout bounds one backend's snapshot when
// Config.BackendTimeout is zero.
const DefaultBackendTimeout = 30 * time.Second

// Config holds the parameters for New.
type Config struct {
	// Backends are reconciled in order. When empty, New loads the
	// storage configuration with config.Load and opens every storage
	// it names; those storages are closed by Close.
	Backends []Backend

	// Clock drives timestamps and backend deadlines. Defaults to
	// clock.Real().
	Clock clock.Clock

	// Logger receives sync progress and backend failures. Defaults to
	// a discarding logger.
	Logger *slog.Logger

	// BackendTimeout bounds each backend's snapshot.
	BackendTimeout time.Duration

	// CachePath places the catalog in a SQLite file instead of
	// memory. The catalog is rebuilt from the backends either way.
	CachePath string
}

// Reliquery is the aggregated view over a set of backends.
type Reliquery struct {
	mu       sync.Mutex
	catalog  *catalog.Catalog
	backends []Backend
	byName   map[string]Backend
	owned    []io.Closer
	clock    clock.Clock
	logger   *slog.Logger
	timeout  time.Duration
	closed   bool
	last     SyncReport
}

// New opens the catalog, resolves the backends, and runs one
// reconciliation pass. The pass's report is logged; backend failures
// during it do not fail New.
func New(ctx context.Context, cfg Config) (*Reliquery, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.BackendTimeout <= 0 {
		cfg.BackendTimeout = DefaultBackendTimeout
	}

	r := &Reliquery{
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		timeout: cfg.BackendTimeout,
		byName:  make(map[string]Backend),
	}

	backends := cfg.Backends
	if len(backends) == 0 {
		discovered, err := r.discover()
		if err != nil {
			return nil, err
		}
		backends = discovered
	}
	for _, backend := range backends {
		name := backend.Name()
		if _, dup := r.byName[name]; dup {
			r.closeOwned()
			return nil, fmt.Errorf("reliquery: duplicate backend name %q", name)
		}
		r.byName[name] = backend
		r.backends = append(r.backends, backend)
	}

	cat, err := catalog.Open(ctx, catalog.Config{
		Path:   cfg.CachePath,
		Clock:  cfg.Clock,
		Logger: cfg.Logger.With("component", "catalog"),
	})
	if err != nil {
		r.closeOwned()
		return nil, fmt.Errorf("reliquery: %w", err)
	}
	r.catalog = cat

	if _, err := r.Sync(ctx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// discover opens the storages named by the environment's
// configuration. Storages that fail to open are skipped; New fails
// only when none open.
func (r *Reliquery) discover() ([]Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("reliquery: %w", err)
	}
	storages, err := storage.OpenAll(cfg, r.logger)
	if len(storages) == 0 {
		if err == nil {
			err = errors.New("no storages configured")
		}
		return nil, fmt.Errorf("reliquery: open storages: %w", err)
	}
	backends := make([]Backend, 0, len(storages))
	for _, s := range storages {
		backends = append(backends, s)
		r.owned = append(r.owned, s)
	}
	return backends, nil
}

// Backend returns the backend with the given storage name.
func (r *Reliquery) Backend(name string) (Backend, bool) {
	backend, ok := r.byName[name]
	return backend, ok
}

// LastSync returns the report of the most recent completed pass.
func (r *Reliquery) LastSync() SyncReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Backends returns the backends in reconciliation order.
func (r *Reliquery) Backends() []Backend {
	return append([]Backend(nil), r.backends...)
}

// Close releases the catalog and any storages New opened itself.
// Close is idempotent.
func (r *Reliquery) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if r.catalog != nil {
		errs = append(errs, r.catalog.Close())
	}
	errs = append(errs, r.closeOwned())
	return errors.Join(errs...)
}

func (r *Reliquery) closeOwned() error {
	var errs []error
	for _, closer := range r.owned {
		errs = append(errs, closer.Close())
	}
	r.owned = nil
	return errors.Join(errs...)
}

// errClosed is returned by every operation after Close.
var errClosed = errors.New("reliquery: closed")
