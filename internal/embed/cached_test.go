package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider wraps HashProvider and counts backend calls.
type countingProvider struct {
	*HashProvider
	embeds  int
	batches int
}

func (c *countingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embeds++
	return c.HashProvider.Embed(ctx, text)
}

func (c *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches++
	c.embeds += len(texts)
	return c.HashProvider.EmbedBatch(ctx, texts)
}

func TestCachedProviderHit(t *testing.T) {
	inner := &countingProvider{HashProvider: NewHashProvider(16)}
	cached := WithCache(inner, 10)

	a, err := cached.Embed(context.Background(), "repeated text")
	require.NoError(t, err)
	b, err := cached.Embed(context.Background(), "repeated text")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, inner.embeds, "second call should hit the cache")
}

func TestCachedProviderReturnsCopies(t *testing.T) {
	cached := WithCache(NewHashProvider(16), 10)

	a, err := cached.Embed(context.Background(), "mutate me")
	require.NoError(t, err)
	a[0] = 42

	b, err := cached.Embed(context.Background(), "mutate me")
	require.NoError(t, err)
	assert.NotEqual(t, float32(42), b[0], "cache must not expose shared slices")
}

func TestCachedProviderBatchPartialHits(t *testing.T) {
	inner := &countingProvider{HashProvider: NewHashProvider(16)}
	cached := WithCache(inner, 10)

	_, err := cached.Embed(context.Background(), "alpha")
	require.NoError(t, err)
	inner.embeds = 0

	vecs, err := cached.EmbedBatch(context.Background(), []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, 2, inner.embeds, "only the misses should reach the backend")

	direct, err := NewHashProvider(16).Embed(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, direct, vecs[0])
}

func TestCachedProviderEviction(t *testing.T) {
	inner := &countingProvider{HashProvider: NewHashProvider(16)}
	cached := WithCache(inner, 2)

	for _, text := range []string{"one", "two", "three"} {
		_, err := cached.Embed(context.Background(), text)
		require.NoError(t, err)
	}
	inner.embeds = 0

	_, err := cached.Embed(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.embeds, "evicted entry should be recomputed")
}

func TestCachedProviderPassThrough(t *testing.T) {
	inner := NewHashProvider(32)
	cached := WithCache(inner, 10)

	assert.Equal(t, inner.ID(), cached.ID())
	assert.Equal(t, inner.Dimensions(), cached.Dimensions())
	assert.NoError(t, cached.Ping(context.Background()))
}
