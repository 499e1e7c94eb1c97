// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package sync_test

import (
	"context"
	"hash/fnv"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/souk-dev/souk/internal/store"
	"github.com/souk-dev/souk/internal/sync"
)

const testDims = 3

// hashEmbedder derives a deterministic unit vector from the text hash,
// so equal texts embed identically without any network dependency.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		h := fnv.New64a()
		_, _ = h.Write([]byte(text))
		seed := h.Sum64()

		vec := make([]float32, testDims)
		var norm float64
		for j := range vec {
			seed = seed*6364136223846793005 + 1442695040888963407
			vec[j] = float32(int64(seed>>32)) / float32(math.MaxInt32)
			norm += float64(vec[j]) * float64(vec[j])
		}
		norm = math.Sqrt(norm)
		for j := range vec {
			vec[j] = float32(float64(vec[j]) / norm)
		}
		out[i] = vec
	}
	return out, nil
}

func (hashEmbedder) Model() string   { return "fake-embedding-001" }
func (hashEmbedder) Dimensions() int { return testDims }

// recordingIndex wraps an Index and records each ingestion batch size.
type recordingIndex struct {
	*store.Index
	batches []int
}

func (r *recordingIndex) UpsertBatch(ctx context.Context, texts []string, metas []store.EntryMeta) error {
	r.batches = append(r.batches, len(texts))
	return r.Index.UpsertBatch(ctx, texts, metas)
}

type env struct {
	catalog *store.Catalog
	index   *recordingIndex
	sync    *sync.Synchronizer
}

func newEnv(t *testing.T, batchSize int) *env {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "souk.db"), 4, testDims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	idx, err := store.NewIndex(context.Background(), db, "products.description", hashEmbedder{})
	require.NoError(t, err)

	rec := &recordingIndex{Index: idx}
	s, err := sync.New(store.NewCatalog(db), rec, batchSize, slog.Default())
	require.NoError(t, err)

	return &env{catalog: store.NewCatalog(db), index: rec, sync: s}
}

func (e *env) put(t *testing.T, p store.Product) {
	t.Helper()
	require.NoError(t, e.catalog.Put(context.Background(), p))
}
