// Package embed provides embedding generation for document retrieval.
package embed

import (
	"context"
	"errors"
	"fmt"
)

// Common errors for embedding providers.
var (
	ErrBackendUnavailable = errors.New("embedding backend unavailable")
	ErrModelNotFound      = errors.New("embedding model not found")
	ErrEmptyText          = errors.New("cannot embed empty text")
	ErrContextCanceled    = errors.New("embedding operation canceled")
)

// Provider defines the interface for embedding backends.
//
// A provider exposes a fixed vector dimension and a stable ID string. The ID
// is recorded in the index manifest; switching providers invalidates the
// whole index and forces a full re-embed.
type Provider interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple texts.
	// Returns embeddings in the same order as input texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ID returns the stable identifier for this backend configuration.
	ID() string

	// Dimensions returns the dimensionality of the embedding vectors.
	Dimensions() int

	// Ping checks if the provider is available.
	Ping(ctx context.Context) error
}

// ProviderError wraps errors with provider context.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, op string, err error) error {
	return &ProviderError{
		Provider: provider,
		Op:       op,
		Err:      err,
	}
}

// embedOneByOne implements EmbedBatch for providers without a native batch
// endpoint. It stops at the first failure so a partially embedded batch is
// never reported as success.
func embedOneByOne(ctx context.Context, p Provider, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
