// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

// Package google implements embed.Embedder using the Google Gemini API.
package google

import (
	"context"

	"google.golang.org/genai"

	"github.com/souk-dev/souk/internal/embed"
	soukerr "github.com/souk-dev/souk/pkg/errors"
)

// taskType marks the embeddings for symmetric search over product
// descriptions.
const taskType = "SEMANTIC_SIMILARITY"

// Config holds Google embedder configuration.
type Config struct {
	APIKey     string
	Model      string // e.g. "gemini-embedding-001"
	Dimensions int
}

// Compile-time interface check.
var _ embed.Embedder = (*Embedder)(nil)

// Embedder calls the Gemini embedContent API.
type Embedder struct {
	client *genai.Client
	config Config
}

// New creates a Gemini embedder. Returns an error if the API key is missing.
func New(ctx context.Context, cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, soukerr.New(soukerr.CodeEmbedRequestInvalid, "google: missing api_key in config")
	}
	if cfg.Model == "" {
		return nil, soukerr.New(soukerr.CodeEmbedRequestInvalid, "google: missing embedding model in config")
	}
	if cfg.Dimensions <= 0 {
		return nil, soukerr.Errorf(soukerr.CodeEmbedRequestInvalid, "google: dimensions must be positive, got %d", cfg.Dimensions)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, soukerr.Wrapf(err, soukerr.CodeEmbedUpstreamFailure, "google: creating client")
	}

	return &Embedder{client: client, config: cfg}, nil
}

func (e *Embedder) Model() string   { return e.config.Model }
func (e *Embedder) Dimensions() int { return e.config.Dimensions }

// Embed returns one vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dims := int32(e.config.Dimensions)
	resp, err := e.client.Models.EmbedContent(ctx, e.config.Model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, soukerr.Wrapf(err, soukerr.CodeEmbedUpstreamFailure, "google: embedding %d texts with %s", len(texts), e.config.Model)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, soukerr.Errorf(soukerr.CodeEmbedUpstreamFailure,
			"google: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, soukerr.Errorf(soukerr.CodeEmbedUpstreamFailure, "google: empty embedding at index %d", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}
