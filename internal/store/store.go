// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

// Package store is the SQLite persistence layer: the products catalog
// the synchronizer reads from and the vector index it writes to share
// one database so missing/stale/orphaned entries can be derived with
// plain joins.
package store

import (
	"database/sql"
	"strconv"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	soukerr "github.com/souk-dev/souk/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// timeLayout pads the fractional second to a fixed width so stored
// timestamps compare chronologically under SQLite string comparison.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open opens (or creates) the souk database at dbPath with a bounded
// connection pool and creates all tables, including the vec0 virtual
// table with the given embedding dimensionality.
func Open(dbPath string, poolSize int, dimensions int) (*sql.DB, error) {
	if poolSize <= 0 {
		return nil, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue, "pool size must be positive, got %d", poolSize)
	}
	if dimensions <= 0 {
		return nil, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue, "dimensions must be positive, got %d", dimensions)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(poolSize)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "pinging sqlite db: %w", err)
	}

	if err := migrate(db, dimensions); err != nil {
		_ = db.Close()
		return nil, soukerr.Errorf(soukerr.CodeIndexDatabaseFailure, "migrating tables: %w", err)
	}

	return db, nil
}

func migrate(db *sql.DB, dimensions int) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT,
	category    TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS collections (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	label      TEXT NOT NULL UNIQUE,
	embedder   TEXT NOT NULL,
	dimensions INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	id            TEXT PRIMARY KEY,
	collection_id INTEGER NOT NULL REFERENCES collections(id),
	product_id    TEXT NOT NULL,
	name          TEXT NOT NULL,
	category      TEXT NOT NULL,
	content       TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	UNIQUE(collection_id, product_id)
);

CREATE INDEX IF NOT EXISTS idx_entries_product ON entries(product_id);
CREATE INDEX IF NOT EXISTS idx_entries_category ON entries(collection_id, category);
`
	if _, err := db.Exec(ddl); err != nil {
		return err
	}

	// The dimensionality is baked into the vec0 DDL at open time; all
	// entries in the database share it.
	vecDDL := `CREATE VIRTUAL TABLE IF NOT EXISTS entry_vectors USING vec0(id TEXT PRIMARY KEY, embedding float[` +
		strconv.Itoa(dimensions) + `])`
	if _, err := db.Exec(vecDDL); err != nil {
		return err
	}

	return nil
}

// formatTime serialises a timestamp for storage.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
