// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	soukerr "github.com/souk-dev/souk/pkg/errors"
)

// Config is the top-level Souk configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Index     IndexConfig     `mapstructure:"index"`
}

// ServerConfig controls how Souk listens for connections.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// AuthConfig holds the accepted client API keys. An empty list disables
// authentication.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// DatabaseConfig selects the SQLite database file and pool bound.
type DatabaseConfig struct {
	Path     string `mapstructure:"path"`
	PoolSize int    `mapstructure:"pool_size"`
}

// EmbeddingConfig holds credentials and tuning for the embedding
// provider.
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	BatchSize  int           `mapstructure:"batch_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
}

// IndexConfig names the index collection. The collection label is the
// join key between catalog and index, so it must stay constant across
// deployments sharing a database.
type IndexConfig struct {
	Collection string `mapstructure:"collection"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix SOUK_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("database.path", "souk.db")
	v.SetDefault("database.pool_size", 5)
	v.SetDefault("embedding.provider", "google")
	v.SetDefault("embedding.model", "gemini-embedding-001")
	v.SetDefault("embedding.dimensions", 3072)
	v.SetDefault("embedding.batch_size", 100)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("index.collection", "products.description")

	// Environment
	v.SetEnvPrefix("SOUK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, soukerr.Errorf(soukerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns a
// slice of all validation errors found, collecting all issues rather
// than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateIndex()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
		return errs
	}

	host, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err,
		))
		return errs
	}
	_ = host // host can be empty (e.g., ":8080"), which is valid

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be a number, got %q",
			portStr,
		))
	} else if port < 1 || port > 65535 {
		errs = append(errs, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be between 1 and 65535, got %d",
			port,
		))
	}

	return errs
}

func (c *Config) validateDatabase() []error {
	var errs []error

	if c.Database.Path == "" {
		errs = append(errs, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue, "config: database.path must not be empty"))
	}

	if c.Database.PoolSize <= 0 {
		errs = append(errs, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue,
			"config: database.pool_size must be greater than 0, got %d",
			c.Database.PoolSize,
		))
	}

	return errs
}

func (c *Config) validateEmbedding() []error {
	var errs []error

	validProviders := map[string]bool{"google": true, "openai": true}
	if !validProviders[c.Embedding.Provider] {
		errs = append(errs, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue,
			"config: embedding.provider must be one of [google, openai], got %q",
			c.Embedding.Provider,
		))
	}

	if c.Embedding.Model == "" {
		errs = append(errs, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue, "config: embedding.model must not be empty"))
	}

	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue,
			"config: embedding.dimensions must be greater than 0, got %d",
			c.Embedding.Dimensions,
		))
	}

	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue,
			"config: embedding.batch_size must be greater than 0, got %d",
			c.Embedding.BatchSize,
		))
	}

	if c.Embedding.Timeout <= 0 {
		errs = append(errs, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue,
			"config: embedding.timeout must be greater than 0, got %s",
			c.Embedding.Timeout,
		))
	}

	return errs
}

func (c *Config) validateIndex() []error {
	var errs []error

	if c.Index.Collection == "" {
		errs = append(errs, soukerr.Errorf(soukerr.CodeConfigValidateInvalidValue, "config: index.collection must not be empty"))
	}

	return errs
}
