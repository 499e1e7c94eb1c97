// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

// Package embed defines the text embedding contract used by the index
// store and provides the batching wrapper shared by all providers.
package embed

import (
	"context"
	"errors"
	"time"

	soukerr "github.com/souk-dev/souk/pkg/errors"
)

// Embedder converts text into dense vectors. Implementations wrap a
// remote embedding service and must return one vector per input text,
// in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimensions() int
}

// Batcher splits embedding requests into bounded sub-batches and applies
// a per-call timeout. A failed sub-batch fails the whole call; no partial
// results are returned.
type Batcher struct {
	inner     Embedder
	batchSize int
	timeout   time.Duration
}

// NewBatcher wraps an Embedder with batch-size and timeout limits.
// batchSize must be positive; timeout zero means no per-call deadline.
func NewBatcher(inner Embedder, batchSize int, timeout time.Duration) (*Batcher, error) {
	if inner == nil {
		return nil, soukerr.New(soukerr.CodeEmbedRequestInvalid, "batcher: nil embedder")
	}
	if batchSize <= 0 {
		return nil, soukerr.Errorf(soukerr.CodeEmbedRequestInvalid, "batcher: batch size must be positive, got %d", batchSize)
	}
	return &Batcher{inner: inner, batchSize: batchSize, timeout: timeout}, nil
}

func (b *Batcher) Model() string   { return b.inner.Model() }
func (b *Batcher) Dimensions() int { return b.inner.Dimensions() }

// Embed sends texts to the underlying embedder in runs of at most the
// configured batch size. Each run carries its own deadline.
func (b *Batcher) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vecs, err := b.embedOne(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, soukerr.Errorf(soukerr.CodeEmbedUpstreamFailure,
				"embedder returned %d vectors for %d texts", len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (b *Batcher) embedOne(ctx context.Context, texts []string) ([][]float32, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	vecs, err := b.inner.Embed(ctx, texts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, soukerr.Wrapf(err, soukerr.CodeEmbedTimeout, "embedding batch of %d texts", len(texts))
		}
		return nil, soukerr.Wrapf(err, soukerr.CodeEmbedUpstreamFailure, "embedding batch of %d texts", len(texts))
	}
	return vecs, nil
}
