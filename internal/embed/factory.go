package embed

import "fmt"

// Backend names accepted by New. Selection is explicit configuration; there
// is no runtime auto-detection.
const (
	BackendHash   = "hash"
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// Config selects and configures an embedding backend.
type Config struct {
	// Backend is one of BackendHash, BackendOllama, BackendOpenAI.
	Backend string
	// Dimensions is the vector size. Required for openai, optional elsewhere.
	Dimensions int
	// Model is the model name for model-backed providers.
	Model string
	// URL is the Ollama endpoint.
	URL string
	// APIKey and BaseURL configure the OpenAI-compatible provider.
	APIKey  string
	BaseURL string
	// CacheSize enables an LRU embedding cache when positive.
	CacheSize int
}

// New constructs the configured Provider.
func New(cfg Config) (Provider, error) {
	var p Provider
	switch cfg.Backend {
	case BackendHash, "":
		p = NewHashProvider(cfg.Dimensions)
	case BackendOllama:
		p = NewOllamaProvider(OllamaConfig{
			URL:        cfg.URL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case BackendOpenAI:
		if cfg.Dimensions <= 0 {
			return nil, fmt.Errorf("openai backend requires explicit dimensions")
		}
		p = NewOpenAIProvider(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}

	if cfg.CacheSize > 0 {
		return WithCache(p, cfg.CacheSize), nil
	}
	return p, nil
}
