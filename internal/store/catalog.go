// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	soukerr "github.com/souk-dev/souk/pkg/errors"
)

// Product is one row of the products catalog. The catalog is owned by
// an external system; souk reads it and only writes through the seed
// helpers used for local development and tests.
type Product struct {
	ID          string
	Name        string
	Description string // empty when the source column is NULL
	Category    string
	UpdatedAt   time.Time
}

// Catalog is the read-only view over the products table.
type Catalog struct {
	db *sql.DB
}

// NewCatalog creates a Catalog over an open database.
func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

// ListMissing returns products with a non-blank description and no index
// entry in the named collection, ordered by product ID. Offset-based
// pagination is stable because ingesting a batch removes it from the
// missing set.
func (c *Catalog) ListMissing(ctx context.Context, collection string, offset, limit int) ([]Product, error) {
	const q = `
SELECT p.id, p.name, p.description, p.category, p.updated_at
FROM products p
	LEFT JOIN collections c ON c.label = ?
	LEFT JOIN entries e ON e.collection_id = c.id AND e.product_id = p.id
WHERE e.id IS NULL
	AND p.description IS NOT NULL
	AND TRIM(p.description) <> ''
ORDER BY p.id
LIMIT ? OFFSET ?`

	rows, err := c.db.QueryContext(ctx, q, collection, limit, offset)
	if err != nil {
		return nil, soukerr.Errorf(soukerr.CodeCatalogQueryDatabase, "listing missing products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []Product
	for rows.Next() {
		var p Product
		var desc sql.NullString
		var updated string

		if err := rows.Scan(&p.ID, &p.Name, &desc, &p.Category, &updated); err != nil {
			return nil, soukerr.Errorf(soukerr.CodeCatalogQueryDatabase, "scanning product row: %w", err)
		}
		p.Description = desc.String
		p.UpdatedAt = parseTime(updated)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, soukerr.Errorf(soukerr.CodeCatalogQueryDatabase, "iterating missing products: %w", err)
	}

	return products, nil
}

// Get retrieves a single product by ID.
func (c *Catalog) Get(ctx context.Context, id string) (*Product, error) {
	const q = `SELECT id, name, description, category, updated_at FROM products WHERE id = ?`

	var p Product
	var desc sql.NullString
	var updated string

	err := c.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &desc, &p.Category, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, soukerr.New(soukerr.CodeCatalogNotFound, "product "+id+" not found", soukerr.FieldProductID(id))
		}
		return nil, soukerr.Errorf(soukerr.CodeCatalogQueryDatabase, "getting product %s: %w", id, err)
	}
	p.Description = desc.String
	p.UpdatedAt = parseTime(updated)

	return &p, nil
}

// Put upserts a product, stamping updated_at with the product's
// UpdatedAt or the current time when unset. Production catalogs are
// maintained externally; this exists for seeding and tests.
func (c *Catalog) Put(ctx context.Context, p Product) error {
	if p.ID == "" {
		return soukerr.New(soukerr.CodeCatalogWriteDatabase, "product id must not be empty")
	}

	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	var desc any
	if p.Description != "" {
		desc = p.Description
	}

	const q = `INSERT INTO products (id, name, description, category, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	description = excluded.description,
	category = excluded.category,
	updated_at = excluded.updated_at`

	if _, err := c.db.ExecContext(ctx, q, p.ID, p.Name, desc, p.Category, formatTime(updated)); err != nil {
		return soukerr.Errorf(soukerr.CodeCatalogWriteDatabase, "upserting product %s: %w", p.ID, err)
	}
	return nil
}

// Delete removes a product from the catalog. The corresponding index
// entry becomes orphaned and is cleaned by the next synchronization run.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return soukerr.Errorf(soukerr.CodeCatalogWriteDatabase, "deleting product %s: %w", id, err)
	}
	return nil
}
