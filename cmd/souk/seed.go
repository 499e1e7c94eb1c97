// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/souk-dev/souk/internal/store"
	soukerr "github.com/souk-dev/souk/pkg/errors"
)

// sampleProducts is a small demo catalog for local development.
var sampleProducts = []store.Product{
	{ID: "1", Name: "Trailhead Tent", Description: "Two-person waterproof tent with a reinforced groundsheet and quick-pitch poles.", Category: "Camping"},
	{ID: "2", Name: "Ridge Jacket", Description: "Breathable rain jacket with taped seams and an adjustable storm hood.", Category: "Apparel"},
	{ID: "3", Name: "Summit Boots", Description: "Leather hiking boots with ankle support and a deep-lug outsole.", Category: "Footwear"},
	{ID: "4", Name: "Ember Stove", Description: "Compact camping stove that boils a liter of water in under four minutes.", Category: "Camping"},
	{ID: "5", Name: "Drift Sleeping Bag", Description: "Three-season down sleeping bag rated to minus five degrees.", Category: "Camping"},
	{ID: "6", Name: "Creek Sandals", Description: "Quick-drying river sandals with a grippy wet-traction sole.", Category: "Footwear"},
	{ID: "7", Name: "Gale Fleece", Description: "Midweight fleece pullover with thumb loops and a half zip.", Category: "Apparel"},
	{ID: "8", Name: "Spare Gift Card", Description: "", Category: "Misc"},
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the schema and insert sample products",
		Long:  "Open (or create) the configured database and upsert a small demo catalog for local development. Run `souk sync` afterwards to index it.",
		RunE:  runSeed,
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := store.Open(cfg.Database.Path, cfg.Database.PoolSize, cfg.Embedding.Dimensions)
	if err != nil {
		return soukerr.Wrapf(err, soukerr.CodeCLISetupFailure, "opening database %s", cfg.Database.Path)
	}
	defer func() { _ = db.Close() }()

	catalog := store.NewCatalog(db)
	for _, p := range sampleProducts {
		if err := catalog.Put(cmd.Context(), p); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products into %s\n", len(sampleProducts), cfg.Database.Path)
	return err
}
