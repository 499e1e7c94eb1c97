// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souk-dev/souk/internal/config"
	soukerr "github.com/souk-dev/souk/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Listen)
	assert.Equal(t, "souk.db", cfg.Database.Path)
	assert.Equal(t, 5, cfg.Database.PoolSize)
	assert.Equal(t, "google", cfg.Embedding.Provider)
	assert.Equal(t, "gemini-embedding-001", cfg.Embedding.Model)
	assert.Equal(t, 3072, cfg.Embedding.Dimensions)
	assert.Equal(t, 100, cfg.Embedding.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, "products.description", cfg.Index.Collection)
	assert.Empty(t, cfg.Auth.APIKeys)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "souk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: ":9090"
auth:
  api_keys:
    - "key-one"
    - "key-two"
database:
  path: "/var/lib/souk/souk.db"
  pool_size: 10
embedding:
  provider: "openai"
  model: "text-embedding-3-small"
  dimensions: 1536
  batch_size: 50
  timeout: "5s"
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, []string{"key-one", "key-two"}, cfg.Auth.APIKeys)
	assert.Equal(t, "/var/lib/souk/souk.db", cfg.Database.Path)
	assert.Equal(t, 10, cfg.Database.PoolSize)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, 5*time.Second, cfg.Embedding.Timeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, soukerr.HasCode(err, soukerr.CodeConfigLoadReadFailure))
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SOUK_EMBEDDING_BATCH_SIZE", "25")
	t.Setenv("SOUK_EMBEDDING_API_KEY", "env-key")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Embedding.BatchSize)
	assert.Equal(t, "env-key", cfg.Embedding.APIKey)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Server:   config.ServerConfig{Listen: "not-an-address"},
		Database: config.DatabaseConfig{Path: "", PoolSize: 0},
		Embedding: config.EmbeddingConfig{
			Provider:   "cohere",
			Model:      "",
			Dimensions: 0,
			BatchSize:  -1,
			Timeout:    0,
		},
		Index: config.IndexConfig{Collection: ""},
	}

	errs := cfg.Validate()
	assert.Len(t, errs, 9)
	for _, err := range errs {
		assert.True(t, soukerr.HasCode(err, soukerr.CodeConfigValidateInvalidValue))
	}
}

func TestValidateListen(t *testing.T) {
	base := func() *config.Config {
		cfg, err := config.Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		listen string
		valid  bool
	}{
		{"host and port", "127.0.0.1:8080", true},
		{"port only", ":8080", true},
		{"no port", "127.0.0.1", false},
		{"port out of range", "127.0.0.1:70000", false},
		{"port not a number", "127.0.0.1:http", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			cfg.Server.Listen = tt.listen
			errs := cfg.Validate()
			if tt.valid {
				assert.Empty(t, errs)
			} else {
				assert.NotEmpty(t, errs)
			}
		})
	}
}
