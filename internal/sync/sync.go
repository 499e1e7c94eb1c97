// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

// Package sync reconciles the product catalog with the vector index. A
// run removes orphaned and stale index entries, then ingests missing
// products in bounded batches until the catalog is exhausted. Runs are
// idempotent: everything a run needs is re-derived from the two stores,
// so a failed run is retried simply by scheduling another one.
package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/souk-dev/souk/internal/store"
	soukerr "github.com/souk-dev/souk/pkg/errors"
)

// Catalog is the read side of a run: the ordered scan of products that
// have indexable content but no index entry yet.
type Catalog interface {
	ListMissing(ctx context.Context, collection string, offset, limit int) ([]store.Product, error)
}

// Index is the write side of a run.
type Index interface {
	Collection() string
	DeleteOrphaned(ctx context.Context) (int, error)
	DeleteStale(ctx context.Context) (int, error)
	UpsertBatch(ctx context.Context, texts []string, metas []store.EntryMeta) error
}

// Report summarizes one synchronization run.
type Report struct {
	RunID    string    `json:"run_id"`
	Orphaned int       `json:"orphaned_removed"`
	Stale    int       `json:"stale_removed"`
	Ingested int       `json:"ingested"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

type state int

const (
	stateCleaningOrphans state = iota
	stateCleaningStale
	stateIngesting
	stateDone
)

// Synchronizer drives one catalog-to-index reconciliation at a time.
// It holds no run state between calls; concurrency control belongs to
// the Runner.
type Synchronizer struct {
	catalog   Catalog
	index     Index
	batchSize int
	logger    *slog.Logger
}

func New(catalog Catalog, index Index, batchSize int, logger *slog.Logger) (*Synchronizer, error) {
	if batchSize <= 0 {
		return nil, soukerr.Errorf(soukerr.CodeSyncRunFailure, "batch size must be positive, got %d", batchSize)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		catalog:   catalog,
		index:     index,
		batchSize: batchSize,
		logger:    logger,
	}, nil
}

// Run executes one full synchronization and returns its report. On
// error the report carries the counts committed before the failure;
// that work stays applied and the next run picks up the remainder.
func (s *Synchronizer) Run(ctx context.Context) (Report, error) {
	return s.run(ctx, uuid.NewString())
}

func (s *Synchronizer) run(ctx context.Context, runID string) (Report, error) {
	rep := Report{RunID: runID, Started: time.Now()}
	log := s.logger.With("run_id", runID, "collection", s.index.Collection())

	log.Info("synchronization started")

	for st := stateCleaningOrphans; st != stateDone; {
		var err error
		switch st {
		case stateCleaningOrphans:
			rep.Orphaned, err = s.index.DeleteOrphaned(ctx)
			st = stateCleaningStale
		case stateCleaningStale:
			// Stale entries must go before the missing scan: removing
			// one is what makes its product count as missing again.
			rep.Stale, err = s.index.DeleteStale(ctx)
			st = stateIngesting
		case stateIngesting:
			var n int
			n, err = s.ingestBatch(ctx)
			rep.Ingested += n
			if err == nil && n == 0 {
				st = stateDone
			}
		}
		if err != nil {
			rep.Finished = time.Now()
			log.Error("synchronization aborted",
				"error", err,
				"orphaned_removed", rep.Orphaned,
				"stale_removed", rep.Stale,
				"ingested", rep.Ingested,
			)
			return rep, soukerr.Wrapf(err, soukerr.CodeSyncRunFailure,
				"synchronizing collection %s", s.index.Collection())
		}
	}

	rep.Finished = time.Now()
	log.Info("synchronization finished",
		"orphaned_removed", rep.Orphaned,
		"stale_removed", rep.Stale,
		"ingested", rep.Ingested,
		"elapsed", rep.Finished.Sub(rep.Started),
	)
	return rep, nil
}

// ingestBatch indexes the next window of missing products and returns
// how many it ingested. Ingested products drop out of the missing set,
// so every scan starts at offset zero and an empty window means the
// catalog is exhausted.
func (s *Synchronizer) ingestBatch(ctx context.Context) (int, error) {
	batch, err := s.catalog.ListMissing(ctx, s.index.Collection(), 0, s.batchSize)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	texts := make([]string, len(batch))
	metas := make([]store.EntryMeta, len(batch))
	for i, p := range batch {
		texts[i] = p.Description
		metas[i] = store.EntryMeta{
			ProductID: p.ID,
			Name:      p.Name,
			Category:  p.Category,
		}
	}

	if err := s.index.UpsertBatch(ctx, texts, metas); err != nil {
		return 0, err
	}
	s.logger.Debug("ingested batch", "collection", s.index.Collection(), "size", len(batch))
	return len(batch), nil
}
