// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/souk-dev/souk/internal/config"
)

// NewRootCmd creates the root souk command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "souk",
		Short:         "Souk — product similarity search service",
		Long:          "Souk keeps a vector index synchronized with a product catalog and serves similarity search over product descriptions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newServeCmd(),
		newSyncCmd(),
		newSeedCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig resolves the config file and loads it. Precedence: the
// --config flag, then souk.yaml discovered from standard locations,
// then a bootstrapped default in ~/.config/souk. With no file at all,
// defaults and SOUK_ environment variables still apply.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.Load(path)
	}

	candidates := []string{"souk.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "souk", "souk.yaml"))
	}
	candidates = append(candidates, filepath.Join("/etc", "souk", "souk.yaml"))

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return config.Load(candidate)
		}
	}

	if path := config.BootstrapConfig(); path != "" {
		return config.Load(path)
	}
	return config.Load("")
}
