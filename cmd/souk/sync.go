// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one catalog-to-index synchronization",
		Long:  "Remove orphaned and stale index entries, ingest missing products, print the run report, and exit. This is the same run the API schedules in the background.",
		RunE:  runSync,
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := WireApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	rep, err := app.Synchronizer.Run(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(),
		"run %s: %d orphaned removed, %d stale removed, %d ingested in %s\n",
		rep.RunID, rep.Orphaned, rep.Stale, rep.Ingested, rep.Finished.Sub(rep.Started).Round(time.Millisecond),
	)
	return err
}
