package embed

import (
	"context"
	"fmt"
	"hash/adler32"
	"math"
	"regexp"
	"strings"
)

// DefaultHashDimensions is the default vector size for the hash provider.
const DefaultHashDimensions = 64

// tokenPattern matches word-like tokens for bucket hashing.
var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

// HashProvider generates embeddings by hashing tokens into fixed buckets.
// It is a pure function of the input text: no I/O, no randomness, no state.
// Retrieval quality is keyword-level only, which is enough for tests and for
// running without a model server.
type HashProvider struct {
	dims int
}

// NewHashProvider creates a hash-based provider with the given dimension.
// A non-positive dimension falls back to DefaultHashDimensions.
func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashProvider{dims: dims}
}

// Embed generates a deterministic embedding for the given text.
// Texts with no tokens produce the zero vector.
func (p *HashProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dims)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		idx := int(adler32.Checksum([]byte(token))) % p.dims
		vec[idx]++
	}
	normalizeInPlace(vec)
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (p *HashProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedOneByOne(ctx, p, texts)
}

// ID returns the stable backend identifier. The dimension is part of the ID
// so indexes built with different sizes are never considered compatible.
func (p *HashProvider) ID() string {
	return fmt.Sprintf("hash-v1-%d", p.dims)
}

// Dimensions returns the embedding vector size.
func (p *HashProvider) Dimensions() int {
	return p.dims
}

// Ping always succeeds; the provider has no external dependency.
func (p *HashProvider) Ping(context.Context) error {
	return nil
}

// normalizeInPlace scales vec to unit length. Zero vectors are left as-is.
func normalizeInPlace(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
