// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souk-dev/souk/internal/store"
	soukerr "github.com/souk-dev/souk/pkg/errors"
)

func TestIndexUpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	idx := testIndex(t, testDB(t))

	err := idx.UpsertBatch(ctx,
		[]string{"Waterproof tent", "Leather hiking boots"},
		[]store.EntryMeta{
			{ProductID: "1", Name: "Tent", Category: "Camping"},
			{ProductID: "2", Name: "Boots", Category: "Footwear"},
		},
	)
	require.NoError(t, err)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Querying with the exact stored text must rank its entry first.
	results, err := idx.SimilarityQuery(ctx, "Waterproof tent", 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].ProductID)
	assert.Equal(t, "Tent", results[0].Name)
	assert.Equal(t, "Waterproof tent", results[0].Content)
}

func TestIndexUpsertReplacesExistingEntry(t *testing.T) {
	ctx := context.Background()
	idx := testIndex(t, testDB(t))

	meta := []store.EntryMeta{{ProductID: "1", Name: "Tent", Category: "Camping"}}
	require.NoError(t, idx.UpsertBatch(ctx, []string{"Old description"}, meta))
	require.NoError(t, idx.UpsertBatch(ctx, []string{"New description"}, meta))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := idx.SimilarityQuery(ctx, "New description", 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "New description", results[0].Content)
}

func TestIndexUpsertLengthMismatch(t *testing.T) {
	idx := testIndex(t, testDB(t))

	err := idx.UpsertBatch(context.Background(),
		[]string{"one", "two"},
		[]store.EntryMeta{{ProductID: "1"}},
	)
	require.Error(t, err)
	assert.True(t, soukerr.IsInvalidInput(err))
}

func TestIndexUpsertEmptyBatch(t *testing.T) {
	idx := testIndex(t, testDB(t))
	assert.NoError(t, idx.UpsertBatch(context.Background(), nil, nil))
}

func TestIndexDeleteOrphaned(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	cat := store.NewCatalog(db)
	idx := testIndex(t, db)

	require.NoError(t, cat.Put(ctx, store.Product{ID: "1", Name: "Tent", Description: "Waterproof tent", Category: "Camping"}))

	err := idx.UpsertBatch(ctx,
		[]string{"Waterproof tent", "Ghost product"},
		[]store.EntryMeta{
			{ProductID: "1", Name: "Tent", Category: "Camping"},
			{ProductID: "gone", Name: "Ghost", Category: "Misc"},
		},
	)
	require.NoError(t, err)

	removed, err := idx.DeleteOrphaned(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The surviving entry belongs to the live product.
	results, err := idx.SimilarityQuery(ctx, "Waterproof tent", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ProductID)
}

func TestIndexDeleteStale(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	cat := store.NewCatalog(db)
	idx := testIndex(t, db)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, cat.Put(ctx, store.Product{ID: "1", Name: "Tent", Description: "Waterproof tent", Category: "Camping", UpdatedAt: past}))
	require.NoError(t, cat.Put(ctx, store.Product{ID: "2", Name: "Boots", Description: "Hiking boots", Category: "Footwear", UpdatedAt: past}))

	err := idx.UpsertBatch(ctx,
		[]string{"Waterproof tent", "Hiking boots"},
		[]store.EntryMeta{
			{ProductID: "1", Name: "Tent", Category: "Camping"},
			{ProductID: "2", Name: "Boots", Category: "Footwear"},
		},
	)
	require.NoError(t, err)

	// Product 1 is updated after its entry was created.
	require.NoError(t, cat.Put(ctx, store.Product{ID: "1", Name: "Tent", Description: "Bigger waterproof tent", Category: "Camping", UpdatedAt: time.Now().Add(time.Minute)}))

	removed, err := idx.DeleteStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndexDeleteStaleSkipsBlankDescriptions(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	cat := store.NewCatalog(db)
	idx := testIndex(t, db)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, cat.Put(ctx, store.Product{ID: "1", Name: "Tent", Description: "Waterproof tent", Category: "Camping", UpdatedAt: past}))

	err := idx.UpsertBatch(ctx,
		[]string{"Waterproof tent"},
		[]store.EntryMeta{{ProductID: "1", Name: "Tent", Category: "Camping"}},
	)
	require.NoError(t, err)

	// Description cleared after indexing: newer than the entry but no
	// longer indexable, so the entry is left alone.
	require.NoError(t, cat.Put(ctx, store.Product{ID: "1", Name: "Tent", Description: "", Category: "Camping", UpdatedAt: time.Now().Add(time.Minute)}))

	removed, err := idx.DeleteStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestIndexFilteredSearchExactness(t *testing.T) {
	ctx := context.Background()
	idx := testIndex(t, testDB(t))

	err := idx.UpsertBatch(ctx,
		[]string{"Wool jacket", "Rain jacket", "Leather boots", "Running shoes"},
		[]store.EntryMeta{
			{ProductID: "1", Name: "Wool Jacket", Category: "Apparel"},
			{ProductID: "2", Name: "Rain Jacket", Category: "Apparel"},
			{ProductID: "3", Name: "Boots", Category: "Footwear"},
			{ProductID: "4", Name: "Shoes", Category: "Footwear"},
		},
	)
	require.NoError(t, err)

	for _, query := range []string{"jacket", "boots", "anything at all"} {
		for _, k := range []int{1, 2, 10} {
			results, err := idx.SimilarityQuery(ctx, query, k, map[string]string{"category": "Footwear"})
			require.NoError(t, err)
			assert.LessOrEqual(t, len(results), k)
			for _, r := range results {
				assert.Contains(t, []string{"3", "4"}, r.ProductID,
					"category filter must never leak another category (query=%q k=%d)", query, k)
			}
		}
	}
}

func TestIndexFilteredSearchNoMatches(t *testing.T) {
	ctx := context.Background()
	idx := testIndex(t, testDB(t))

	err := idx.UpsertBatch(ctx,
		[]string{"Wool jacket"},
		[]store.EntryMeta{{ProductID: "1", Name: "Wool Jacket", Category: "Apparel"}},
	)
	require.NoError(t, err)

	results, err := idx.SimilarityQuery(ctx, "jacket", 10, map[string]string{"category": "Footwear"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndexUnsupportedFilterKey(t *testing.T) {
	idx := testIndex(t, testDB(t))

	_, err := idx.SimilarityQuery(context.Background(), "q", 10, map[string]string{"color": "red"})
	require.Error(t, err)
}

func TestIndexQueryRejectsNonPositiveK(t *testing.T) {
	idx := testIndex(t, testDB(t))

	_, err := idx.SimilarityQuery(context.Background(), "q", 0, nil)
	require.Error(t, err)
}

func TestIndexEmbeddingConfigConflict(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	_ = testIndex(t, db)

	// Same collection, different dimensionality.
	_, err := store.NewIndex(ctx, db, "products.description", &fakeEmbedder{dims: 5})
	require.Error(t, err)
	assert.True(t, soukerr.HasCode(err, soukerr.CodeIndexDimensionConflict))
}

func TestIndexEntryCreatedAt(t *testing.T) {
	ctx := context.Background()
	idx := testIndex(t, testDB(t))

	created, err := idx.EntryCreatedAt(ctx, "1")
	require.NoError(t, err)
	assert.True(t, created.IsZero())

	before := time.Now()
	err = idx.UpsertBatch(ctx,
		[]string{"Waterproof tent"},
		[]store.EntryMeta{{ProductID: "1", Name: "Tent", Category: "Camping"}},
	)
	require.NoError(t, err)

	created, err = idx.EntryCreatedAt(ctx, "1")
	require.NoError(t, err)
	assert.False(t, created.IsZero())
	assert.False(t, created.Before(before.Truncate(time.Second)))
}
