// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

// Package openai implements embed.Embedder using the OpenAI embeddings API.
package openai

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/souk-dev/souk/internal/embed"
	soukerr "github.com/souk-dev/souk/pkg/errors"
)

// Config holds OpenAI embedder configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	Model      string // e.g. "text-embedding-3-small"
	Dimensions int
}

// Compile-time interface check.
var _ embed.Embedder = (*Embedder)(nil)

// Embedder calls the OpenAI embeddings endpoint.
type Embedder struct {
	client openaisdk.Client
	config Config
}

// New creates an OpenAI embedder. Returns an error if the API key is missing.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, soukerr.New(soukerr.CodeEmbedRequestInvalid, "openai: missing api_key in config")
	}
	if cfg.Model == "" {
		return nil, soukerr.New(soukerr.CodeEmbedRequestInvalid, "openai: missing embedding model in config")
	}
	if cfg.Dimensions <= 0 {
		return nil, soukerr.Errorf(soukerr.CodeEmbedRequestInvalid, "openai: dimensions must be positive, got %d", cfg.Dimensions)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Embedder{client: openaisdk.NewClient(opts...), config: cfg}, nil
}

func (e *Embedder) Model() string   { return e.config.Model }
func (e *Embedder) Dimensions() int { return e.config.Dimensions }

// Embed returns one vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input:      openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openaisdk.EmbeddingModel(e.config.Model),
		Dimensions: openaisdk.Int(int64(e.config.Dimensions)),
	})
	if err != nil {
		return nil, soukerr.Wrapf(err, soukerr.CodeEmbedUpstreamFailure, "openai: embedding %d texts with %s", len(texts), e.config.Model)
	}

	if len(resp.Data) != len(texts) {
		return nil, soukerr.Errorf(soukerr.CodeEmbedUpstreamFailure,
			"openai: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}
