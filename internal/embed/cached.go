package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of embeddings to cache.
const DefaultCacheSize = 1000

// CachedProvider wraps a Provider with an LRU cache so repeated texts are
// embedded once. Cache keys include the backend ID, so sharing a cache
// between differently configured providers is safe.
type CachedProvider struct {
	inner Provider
	cache *lru.Cache[string, []float32]
}

// WithCache wraps a Provider with an LRU embedding cache.
func WithCache(p Provider, size int) *CachedProvider {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedProvider{inner: p, cache: cache}
}

func (c *CachedProvider) key(text string) string {
	sum := sha256.Sum256([]byte(c.inner.ID() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Embed returns a cached embedding if available, otherwise computes and
// caches it. Returned slices are copies; callers may mutate them.
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if vec, ok := c.cache.Get(key); ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.cache.Add(key, stored)
	return vec, nil
}

// EmbedBatch embeds multiple texts, consulting the cache for each.
func (c *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.key(text)); ok {
			out := make([]float32, len(vec))
			copy(out, vec)
			results[i] = out
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	vectors, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, vec := range vectors {
		stored := make([]float32, len(vec))
		copy(stored, vec)
		c.cache.Add(c.key(missTexts[j]), stored)
		results[missIdx[j]] = vec
	}
	return results, nil
}

// ID returns the inner provider's identifier. Caching does not change the
// embedding semantics, so the ID passes through.
func (c *CachedProvider) ID() string {
	return c.inner.ID()
}

// Dimensions returns the inner provider's vector size.
func (c *CachedProvider) Dimensions() int {
	return c.inner.Dimensions()
}

// Ping checks the inner provider.
func (c *CachedProvider) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}
