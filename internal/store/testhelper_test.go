// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package store_test

import (
	"context"
	"database/sql"
	"hash/fnv"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/souk-dev/souk/internal/store"
)

const testDims = 3

// fakeEmbedder derives a deterministic unit vector from the text hash so
// identical texts embed identically and search is reproducible offline.
type fakeEmbedder struct {
	dims int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = hashVector(text, f.dims)
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string   { return "fake-embedding-001" }
func (f *fakeEmbedder) Dimensions() int { return f.dims }

func hashVector(text string, dims int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dims)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33)) / float32(1<<30)
		norm += float64(vec[i]) * float64(vec[i])
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "souk.db"), 4, testDims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testIndex(t *testing.T, db *sql.DB) *store.Index {
	t.Helper()
	idx, err := store.NewIndex(context.Background(), db, "products.description", &fakeEmbedder{dims: testDims})
	require.NoError(t, err)
	return idx
}
