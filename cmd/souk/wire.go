// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/souk-dev/souk/internal/config"
	"github.com/souk-dev/souk/internal/embed"
	googleembed "github.com/souk-dev/souk/internal/embed/google"
	openaiembed "github.com/souk-dev/souk/internal/embed/openai"
	"github.com/souk-dev/souk/internal/server"
	"github.com/souk-dev/souk/internal/store"
	"github.com/souk-dev/souk/internal/sync"
	soukerr "github.com/souk-dev/souk/pkg/errors"
)

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	DB           *sql.DB
	Catalog      *store.Catalog
	Index        *store.Index
	Synchronizer *sync.Synchronizer
	Runner       *sync.Runner
	Server       *server.Server
}

// WireApp creates all subsystems and wires them together.
func WireApp(ctx context.Context, cfg *config.Config) (*App, error) {
	// 1. Shared SQLite database: catalog tables plus vector index.
	db, err := store.Open(cfg.Database.Path, cfg.Database.PoolSize, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, soukerr.Wrapf(err, soukerr.CodeCLISetupFailure, "opening database %s", cfg.Database.Path)
	}

	// 2. Embedding provider behind the batching wrapper.
	embedder, err := newEmbedder(ctx, cfg.Embedding)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	batched, err := embed.NewBatcher(embedder, cfg.Embedding.BatchSize, cfg.Embedding.Timeout)
	if err != nil {
		_ = db.Close()
		return nil, soukerr.Wrapf(err, soukerr.CodeCLISetupFailure, "configuring embedding batcher")
	}

	// 3. Catalog and index over the shared database.
	catalog := store.NewCatalog(db)
	index, err := store.NewIndex(ctx, db, cfg.Index.Collection, batched)
	if err != nil {
		_ = db.Close()
		return nil, soukerr.Wrapf(err, soukerr.CodeCLISetupFailure, "binding index collection %s", cfg.Index.Collection)
	}

	// 4. Synchronizer and its background runner.
	synchronizer, err := sync.New(catalog, index, cfg.Embedding.BatchSize, slog.Default())
	if err != nil {
		_ = db.Close()
		return nil, soukerr.Wrapf(err, soukerr.CodeCLISetupFailure, "creating synchronizer")
	}
	runner := sync.NewRunner(synchronizer, slog.Default())

	// 5. HTTP server.
	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, server.NewKeyValidator(cfg.Auth.APIKeys))
	if err != nil {
		_ = db.Close()
		return nil, soukerr.Wrapf(err, soukerr.CodeCLISetupFailure, "creating HTTP server")
	}
	srv.RegisterServices(&server.Services{
		Trigger: runner,
		Index:   index,
		Reports: runner,
	})

	return &App{
		DB:           db,
		Catalog:      catalog,
		Index:        index,
		Synchronizer: synchronizer,
		Runner:       runner,
		Server:       srv,
	}, nil
}

// Close releases the shared database.
func (a *App) Close() error {
	return a.DB.Close()
}

func newEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (embed.Embedder, error) {
	switch cfg.Provider {
	case "google":
		return googleembed.New(ctx, googleembed.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case "openai":
		return openaiembed.New(openaiembed.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, soukerr.Errorf(soukerr.CodeCLISetupFailure, "unsupported embedding provider %q", cfg.Provider)
	}
}
