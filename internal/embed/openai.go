package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig holds configuration for the OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// OpenAIProvider implements Provider using an OpenAI-compatible embeddings
// API. Any endpoint speaking the same protocol works via BaseURL.
type OpenAIProvider struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   int
}

// NewOpenAIProvider creates an OpenAI-compatible embedding provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  openai.EmbeddingModel(cfg.Model),
		dims:   cfg.Dimensions,
	}
}

// Embed generates an embedding for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, NewProviderError("openai", "embed", ErrEmptyText)
	}
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          p.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if p.dims > 0 {
		req.Dimensions = p.dims
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewProviderError("openai", "embedBatch", ErrContextCanceled)
		}
		return nil, NewProviderError("openai", "embedBatch", fmt.Errorf("%w: %v", ErrBackendUnavailable, err))
	}
	if len(resp.Data) != len(texts) {
		return nil, NewProviderError("openai", "embedBatch",
			fmt.Errorf("%w: got %d embeddings for %d texts", ErrBackendUnavailable, len(resp.Data), len(texts)))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, NewProviderError("openai", "embedBatch",
				fmt.Errorf("%w: embedding index %d out of range", ErrBackendUnavailable, d.Index))
		}
		vectors[d.Index] = d.Embedding
	}
	for i, vec := range vectors {
		if p.dims > 0 && len(vec) != p.dims {
			return nil, NewProviderError("openai", "embedBatch",
				fmt.Errorf("expected %d dimensions, got %d for text %d", p.dims, len(vec), i))
		}
	}
	return vectors, nil
}

// ID returns the stable backend identifier.
func (p *OpenAIProvider) ID() string {
	return fmt.Sprintf("openai:%s:%d", p.model, p.dims)
}

// Dimensions returns the embedding vector size.
func (p *OpenAIProvider) Dimensions() int {
	return p.dims
}

// Ping checks API availability via the models listing endpoint.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return NewProviderError("openai", "ping", ErrBackendUnavailable)
	}
	return nil
}
