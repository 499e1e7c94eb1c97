// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"

	"github.com/souk-dev/souk/internal/embed"
	soukerr "github.com/souk-dev/souk/pkg/errors"
)

// EntryMeta is the metadata stored alongside one embedded description.
type EntryMeta struct {
	ProductID string
	Name      string
	Category  string
}

// Result is one similarity search hit, ordered by decreasing similarity.
type Result struct {
	ProductID string
	Name      string
	Content   string
}

// filterColumns maps metadata filter keys to entry columns. Unknown keys
// are rejected so a typo cannot silently widen a query.
var filterColumns = map[string]string{
	"id":       "product_id",
	"name":     "name",
	"category": "category",
}

// Index is the adapter over one collection of the vector index: upserts
// embed text through the configured embedder, deletions are derived by
// joining against the products table, and queries are exact
// metadata-filtered nearest-neighbor scans.
type Index struct {
	db           *sql.DB
	embedder     embed.Embedder
	collection   string
	collectionID int64
}

// NewIndex binds an Index to the named collection, creating the
// collection row on first use. The collection records the embedder model
// and dimensionality; reopening it with a different embedding
// configuration is an error, since entries of mixed dimensionality
// cannot share a collection.
func NewIndex(ctx context.Context, db *sql.DB, collection string, embedder embed.Embedder) (*Index, error) {
	if collection == "" {
		return nil, soukerr.New(soukerr.CodeIndexUpsertInvalid, "collection label must not be empty")
	}

	idx := &Index{
		db:         db,
		embedder:   embedder,
		collection: collection,
	}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

// Collection returns the collection label this index is bound to.
func (x *Index) Collection() string { return x.collection }

func (x *Index) ensureCollection(ctx context.Context) error {
	const sel = `SELECT id, embedder, dimensions FROM collections WHERE label = ?`

	var (
		id    int64
		model string
		dims  int
	)
	err := x.db.QueryRowContext(ctx, sel, x.collection).Scan(&id, &model, &dims)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		const ins = `INSERT INTO collections (label, embedder, dimensions) VALUES (?, ?, ?)`
		res, err := x.db.ExecContext(ctx, ins, x.collection, x.embedder.Model(), x.embedder.Dimensions())
		if err != nil {
			return soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "creating collection %s: %w", x.collection, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "resolving collection id: %w", err)
		}
	case err != nil:
		return soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "loading collection %s: %w", x.collection, err)
	default:
		if dims != x.embedder.Dimensions() || model != x.embedder.Model() {
			return soukerr.New(soukerr.CodeIndexDimensionConflict,
				"collection was created with a different embedding configuration",
				soukerr.FieldCollection(x.collection),
				soukerr.Field("stored_embedder", model),
				soukerr.Field("stored_dimensions", dims),
				soukerr.Field("configured_embedder", x.embedder.Model()),
				soukerr.Field("configured_dimensions", x.embedder.Dimensions()),
			)
		}
	}

	x.collectionID = id
	return nil
}

// UpsertBatch embeds texts and writes one entry per (text, metadata)
// pair, stamped with the current time. Embedding happens before any
// write, so a failed embedding call leaves the whole batch absent and
// the next synchronization run retries it.
func (x *Index) UpsertBatch(ctx context.Context, texts []string, metas []EntryMeta) error {
	if len(texts) != len(metas) {
		return soukerr.New(soukerr.CodeIndexUpsertInvalid,
			"texts and metadatas must match one-to-one",
			soukerr.FieldCollection(x.collection),
			soukerr.Field("texts", len(texts)),
			soukerr.Field("metadatas", len(metas)),
		)
	}
	if len(texts) == 0 {
		return nil
	}

	vecs, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}

	blobs := make([][]byte, len(vecs))
	for i, vec := range vecs {
		blob, err := sqlite_vec.SerializeFloat32(vec)
		if err != nil {
			return soukerr.Errorf(soukerr.CodeIndexUpsertInvalid, "serializing embedding %d: %w", i, err)
		}
		blobs[i] = blob
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "beginning upsert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := formatTime(time.Now())

	for i, meta := range metas {
		// Full replace: any previous entry for this product goes first.
		if err := x.deleteByProductTx(ctx, tx, meta.ProductID); err != nil {
			return err
		}

		entryID := uuid.NewString()

		const insEntry = `INSERT INTO entries (id, collection_id, product_id, name, category, content, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insEntry,
			entryID, x.collectionID, meta.ProductID, meta.Name, meta.Category, texts[i], created,
		); err != nil {
			return soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "inserting entry for product %s: %w", meta.ProductID, err)
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO entry_vectors (id, embedding) VALUES (?, ?)`, entryID, blobs[i]); err != nil {
			return soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "inserting vector for product %s: %w", meta.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "committing upsert of %d entries: %w", len(texts), err)
	}
	return nil
}

func (x *Index) deleteByProductTx(ctx context.Context, tx *sql.Tx, productID string) error {
	const sel = `SELECT id FROM entries WHERE collection_id = ? AND product_id = ?`

	var entryID string
	err := tx.QueryRowContext(ctx, sel, x.collectionID, productID).Scan(&entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "looking up entry for product %s: %w", productID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, entryID); err != nil {
		return soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "deleting entry %s: %w", entryID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_vectors WHERE id = ?`, entryID); err != nil {
		return soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "deleting vector %s: %w", entryID, err)
	}
	return nil
}

// DeleteOrphaned removes entries whose product no longer exists in the
// catalog and returns the count removed.
func (x *Index) DeleteOrphaned(ctx context.Context) (int, error) {
	const q = `
SELECT e.id FROM entries e
WHERE e.collection_id = ?
	AND NOT EXISTS (SELECT 1 FROM products p WHERE p.id = e.product_id)`

	ids, err := x.selectEntryIDs(ctx, q, x.collectionID)
	if err != nil {
		return 0, soukerr.Wrapf(err, soukerr.CodeIndexDatabaseFailure, "selecting orphaned entries")
	}
	return x.deleteEntries(ctx, ids)
}

// DeleteStale removes entries whose product was updated after the entry
// was created, restricted to products that still have an indexable
// description, and returns the count removed. Removal is what makes the
// product reappear as missing on the rescan.
func (x *Index) DeleteStale(ctx context.Context) (int, error) {
	const q = `
SELECT e.id FROM entries e
	JOIN products p ON p.id = e.product_id
WHERE e.collection_id = ?
	AND p.updated_at > e.created_at
	AND p.description IS NOT NULL
	AND TRIM(p.description) <> ''`

	ids, err := x.selectEntryIDs(ctx, q, x.collectionID)
	if err != nil {
		return 0, soukerr.Wrapf(err, soukerr.CodeIndexDatabaseFailure, "selecting stale entries")
	}
	return x.deleteEntries(ctx, ids)
}

func (x *Index) selectEntryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (x *Index) deleteEntries(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "beginning delete transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return 0, soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "deleting entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_vectors WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return 0, soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "deleting entry vectors: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "committing delete of %d entries: %w", len(ids), err)
	}
	return len(ids), nil
}

// SimilarityQuery embeds the query text and returns up to k entries
// matching every filter key exactly, ordered by increasing cosine
// distance. Tie order is not guaranteed.
func (x *Index) SimilarityQuery(ctx context.Context, queryText string, k int, filter map[string]string) ([]Result, error) {
	if k <= 0 {
		return nil, soukerr.Errorf(soukerr.CodeIndexQueryFailure, "k must be positive, got %d", k)
	}

	vecs, err := x.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, soukerr.Errorf(soukerr.CodeEmbedUpstreamFailure, "expected 1 query embedding, got %d", len(vecs))
	}
	blob, err := sqlite_vec.SerializeFloat32(vecs[0])
	if err != nil {
		return nil, soukerr.Errorf(soukerr.CodeIndexQueryFailure, "serializing query embedding: %w", err)
	}

	var (
		qb   strings.Builder
		args []any
	)

	qb.WriteString(`SELECT e.product_id, e.name, e.content
FROM entries e
	JOIN entry_vectors v ON v.id = e.id
WHERE e.collection_id = ?`)
	args = append(args, x.collectionID)

	for key, val := range filter {
		col, ok := filterColumns[key]
		if !ok {
			return nil, soukerr.Errorf(soukerr.CodeIndexQueryFailure, "unsupported metadata filter key %q", key)
		}
		qb.WriteString(` AND e.` + col + ` = ?`)
		args = append(args, val)
	}

	qb.WriteString(` ORDER BY vec_distance_cosine(v.embedding, ?) LIMIT ?`)
	args = append(args, blob, k)

	rows, err := x.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, soukerr.Errorf(soukerr.CodeIndexQueryFailure, "searching collection %s: %w", x.collection, err)
	}
	defer func() { _ = rows.Close() }()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ProductID, &r.Name, &r.Content); err != nil {
			return nil, soukerr.Errorf(soukerr.CodeIndexQueryFailure, "scanning search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, soukerr.Errorf(soukerr.CodeIndexQueryFailure, "iterating search results: %w", err)
	}

	return results, nil
}

// Count returns the number of entries in the collection.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE collection_id = ?`, x.collectionID).Scan(&n)
	if err != nil {
		return 0, soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "counting entries: %w", err)
	}
	return n, nil
}

// EntryCreatedAt returns the creation timestamp of the entry for a
// product, or the zero time when no entry exists.
func (x *Index) EntryCreatedAt(ctx context.Context, productID string) (time.Time, error) {
	const q = `SELECT created_at FROM entries WHERE collection_id = ? AND product_id = ?`

	var created string
	err := x.db.QueryRowContext(ctx, q, x.collectionID, productID).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "loading entry timestamp for %s: %w", productID, err)
	}
	return parseTime(created), nil
}
