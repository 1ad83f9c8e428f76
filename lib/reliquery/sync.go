// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package reliquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/The-Dev-Effect/reliquery/lib/schema"
	"github.com/The-Dev-Effect/reliquery/lib/storage"
)

// SyncReport summarizes one reconciliation pass.
type SyncReport struct {
	// Backends is the number of backends visited.
	Backends int `json:"backends"`

	// FailedBackends names backends whose snapshot failed or timed
	// out. Their cached identities were kept.
	FailedBackends []string `json:"failed_backends,omitempty"`

	// Relics is the number of identities backends reported.
	Relics int `json:"relics"`

	// TagsAdded counts tag pairs newly cached.
	TagsAdded int `json:"tags_added"`

	// MetadataChanged counts metadata rows inserted or replaced.
	MetadataChanged int `json:"metadata_changed"`

	// MetadataSkipped counts metadata documents not merged: malformed
	// timestamps and documents whose relic was not reported.
	MetadataSkipped int `json:"metadata_skipped"`

	// RecordErrors counts per-record failures: unreadable tag or
	// metadata documents and identities the catalog rejected.
	RecordErrors int `json:"record_errors"`

	// Purged is the number of identities removed because no backend
	// reported them.
	Purged int `json:"purged"`

	Duration time.Duration `json:"duration"`
}

// snapshot is one backend's state, read before any catalog write.
type snapshot struct {
	relics   []schema.RelicData
	tags     []map[string]string
	metadata []schema.Metadata
	failures []error
}

type relicKey struct {
	relicType string
	name      string
}

// Sync runs one reconciliation pass over every backend.
func (r *Reliquery) Sync(ctx context.Context) (SyncReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return SyncReport{}, errClosed
	}
	return r.sync(ctx)
}

func (r *Reliquery) sync(ctx context.Context) (SyncReport, error) {
	start := r.clock.Now()
	report := SyncReport{Backends: len(r.backends)}
	seen := make(map[int64]struct{})

	for _, backend := range r.backends {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("reliquery: sync: %w", err)
		}
		name := backend.Name()

		snap, err := r.collect(ctx, backend)
		if err != nil {
			if ctx.Err() != nil {
				return report, fmt.Errorf("reliquery: sync: %w", ctx.Err())
			}
			r.logger.Warn("backend unavailable, keeping cached relics",
				"backend", name, "error", err)
			report.FailedBackends = append(report.FailedBackends, name)
			ids, err := r.catalog.RelicIDsByStorage(ctx, name)
			if err != nil {
				return report, fmt.Errorf("reliquery: sync: %w", err)
			}
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			continue
		}

		for _, failure := range snap.failures {
			r.logger.Warn("skipping unreadable record", "backend", name, "error", failure)
		}
		report.RecordErrors += len(snap.failures)

		if err := r.apply(ctx, name, snap, seen, &report); err != nil {
			return report, err
		}
	}

	purged, err := r.catalog.PurgeRelics(ctx, seen)
	if err != nil {
		return report, fmt.Errorf("reliquery: sync: %w", err)
	}
	report.Purged = purged
	report.Duration = r.clock.Now().Sub(start)
	r.last = report

	r.logger.Info("sync complete",
		"backends", report.Backends,
		"failed", len(report.FailedBackends),
		"relics", report.Relics,
		"tags_added", report.TagsAdded,
		"metadata_changed", report.MetadataChanged,
		"metadata_skipped", report.MetadataSkipped,
		"record_errors", report.RecordErrors,
		"purged", report.Purged,
		"duration", report.Duration,
	)
	return report, nil
}

// collect snapshots one backend under the configured timeout. The
// snapshot runs on its own goroutine so a backend that ignores
// cancellation cannot stall the pass; its late result is discarded.
func (r *Reliquery) collect(ctx context.Context, backend Backend) (*snapshot, error) {
	collectCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	timer := r.clock.NewTimer(r.timeout)
	defer timer.Stop()

	type result struct {
		snap *snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := snapshotBackend(collectCtx, backend)
		done <- result{snap, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, &BackendError{Backend: backend.Name(), Op: "snapshot", Err: res.err}
		}
		return res.snap, nil
	case <-timer.C:
		return nil, &BackendError{Backend: backend.Name(), Op: "snapshot", Err: ErrBackendTimeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// snapshotBackend reads identities, then each identity's tags, then
// every metadata document. An identity enumeration error fails the
// whole snapshot; tag and metadata errors are per-record.
func snapshotBackend(ctx context.Context, backend Backend) (*snapshot, error) {
	snap := &snapshot{}
	for relic, err := range backend.AllRelicData(ctx) {
		if err != nil {
			return nil, fmt.Errorf("enumerate relics: %w", err)
		}
		snap.relics = append(snap.relics, relic)
	}

	snap.tags = make([]map[string]string, len(snap.relics))
	for i, relic := range snap.relics {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tags, err := backend.GetTags(ctx, storage.RelicPath(relic.Type, relic.Name))
		if err != nil {
			snap.failures = append(snap.failures, fmt.Errorf("tags of %s/%s: %w", relic.Type, relic.Name, err))
			continue
		}
		snap.tags[i] = tags
	}

	for record, err := range backend.AllMetadata(ctx) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			snap.failures = append(snap.failures, err)
			continue
		}
		snap.metadata = append(snap.metadata, record)
	}
	return snap, nil
}

// apply merges one backend's snapshot into the catalog and records
// the ids of its identities in seen.
func (r *Reliquery) apply(ctx context.Context, backendName string, snap *snapshot, seen map[int64]struct{}, report *SyncReport) error {
	ids := make(map[relicKey]int64, len(snap.relics))

	for i, relic := range snap.relics {
		relic.ID = 0
		relic.StorageName = backendName
		stored, err := r.catalog.SyncRelicData(ctx, relic)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("reliquery: sync: %w", ctx.Err())
			}
			r.logger.Warn("skipping relic", "backend", backendName,
				"relic_type", relic.Type, "relic_name", relic.Name, "error", err)
			report.RecordErrors++
			continue
		}
		seen[stored.ID] = struct{}{}
		ids[relicKey{relic.Type, relic.Name}] = stored.ID
		report.Relics++

		if len(snap.tags[i]) == 0 {
			continue
		}
		added, err := r.catalog.SyncTags(ctx, schema.Tag{RelicID: stored.ID, Pairs: snap.tags[i]})
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("reliquery: sync: %w", ctx.Err())
			}
			r.logger.Warn("skipping tags", "backend", backendName,
				"relic_type", relic.Type, "relic_name", relic.Name, "error", err)
			report.RecordErrors++
			continue
		}
		report.TagsAdded += added
	}

	for _, record := range snap.metadata {
		id, ok := ids[relicKey{record.RelicType, record.RelicName}]
		if !ok {
			r.logger.Debug("metadata without a reported relic", "backend", backendName,
				"relic_type", record.RelicType, "relic_name", record.RelicName, "name", record.Name)
			report.MetadataSkipped++
			continue
		}
		record.ID = 0
		record.RelicID = id
		changed, err := r.catalog.SyncMetadata(ctx, record)
		switch {
		case errors.Is(err, schema.ErrMalformedTimestamp):
			r.logger.Warn("skipping metadata with malformed timestamp", "backend", backendName,
				"relic_type", record.RelicType, "relic_name", record.RelicName,
				"name", record.Name, "last_modified", record.LastModified)
			report.MetadataSkipped++
		case err != nil:
			if ctx.Err() != nil {
				return fmt.Errorf("reliquery: sync: %w", ctx.Err())
			}
			r.logger.Warn("skipping metadata", "backend", backendName,
				"relic_type", record.RelicType, "relic_name", record.RelicName,
				"name", record.Name, "error", err)
			report.RecordErrors++
		case changed:
			report.MetadataChanged++
		}
	}
	return nil
}
