package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/engine"
	"github.com/docdex/docdex/internal/vector"
)

func newTestIndexer(t *testing.T) (*Indexer, *engine.Engine) {
	t.Helper()
	eng := engine.New(embed.NewHashProvider(16), vector.KindFlat)
	return NewIndexer(eng, ChunkerConfig{WindowSize: 20, Overlap: 5}, nil), eng
}

func TestIndexDocument(t *testing.T) {
	ix, eng := newTestIndexer(t)

	sum, err := ix.IndexDocument(context.Background(), "notes/api.md", "documents are split into overlapping windows")
	require.NoError(t, err)
	assert.Positive(t, sum.ChunksAdded)
	assert.Zero(t, sum.ChunksRemoved)

	assert.Equal(t, sum.ChunksAdded, eng.Store.Len())
	assert.Equal(t, sum.ChunksAdded, eng.Index.Len())
	assert.Contains(t, eng.Manifest.Fingerprints, "notes/api.md")
}

func TestIndexDocumentUnchangedIsNoop(t *testing.T) {
	ix, eng := newTestIndexer(t)
	content := "the same content twice"

	first, err := ix.IndexDocument(context.Background(), "a.md", content)
	require.NoError(t, err)
	require.Positive(t, first.ChunksAdded)

	before := eng.Store.Len()
	second, err := ix.IndexDocument(context.Background(), "a.md", content)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, second)
	assert.Equal(t, before, eng.Store.Len())
}

func TestIndexDocumentReindexReplacesChunks(t *testing.T) {
	ix, eng := newTestIndexer(t)

	first, err := ix.IndexDocument(context.Background(), "a.md", strings.Repeat("old content here ", 5))
	require.NoError(t, err)

	second, err := ix.IndexDocument(context.Background(), "a.md", "brand new words")
	require.NoError(t, err)
	assert.Equal(t, first.ChunksAdded, second.ChunksRemoved, "all old chunks replaced")
	assert.Equal(t, second.ChunksAdded, eng.Store.Len())
	assert.Equal(t, second.ChunksAdded, eng.Index.Len())
}

func TestIndexDocumentIsolation(t *testing.T) {
	ix, eng := newTestIndexer(t)

	_, err := ix.IndexDocument(context.Background(), "keep.md", "this one stays put")
	require.NoError(t, err)
	keepBefore := eng.Store.Len()

	_, err = ix.IndexDocument(context.Background(), "churn.md", "this one changes")
	require.NoError(t, err)
	_, err = ix.IndexDocument(context.Background(), "churn.md", "changed already")
	require.NoError(t, err)

	sources := eng.Store.Sources()
	assert.Equal(t, keepBefore, sources["keep.md"], "other documents are untouched")
}

// failingProvider returns an error after a set number of successful calls.
type failingProvider struct {
	inner     embed.Provider
	remaining int
}

func (f *failingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.remaining <= 0 {
		return nil, errors.New("backend down")
	}
	f.remaining--
	return f.inner.Embed(ctx, text)
}

func (f *failingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *failingProvider) ID() string                 { return f.inner.ID() }
func (f *failingProvider) Dimensions() int            { return f.inner.Dimensions() }
func (f *failingProvider) Ping(context.Context) error { return nil }

func TestIndexDocumentBackendFailureLeavesEngineUntouched(t *testing.T) {
	provider := &failingProvider{inner: embed.NewHashProvider(16), remaining: 100}
	eng := engine.New(provider, vector.KindFlat)
	ix := NewIndexer(eng, ChunkerConfig{WindowSize: 10, Overlap: 0}, nil)

	_, err := ix.IndexDocument(context.Background(), "a.md", "settled document content")
	require.NoError(t, err)
	chunksBefore := eng.Store.Len()
	vectorsBefore := eng.Index.Len()
	fpBefore := eng.Manifest.Fingerprints["a.md"]

	// The next document needs several embeddings; fail partway through.
	provider.remaining = 1
	_, err = ix.IndexDocument(context.Background(), "a.md", "entirely different text spanning windows")
	require.Error(t, err)

	assert.Equal(t, chunksBefore, eng.Store.Len(), "failed indexing must not change the store")
	assert.Equal(t, vectorsBefore, eng.Index.Len(), "failed indexing must not change the index")
	assert.Equal(t, fpBefore, eng.Manifest.Fingerprints["a.md"], "fingerprint must not advance on failure")
}

func TestRemoveDocument(t *testing.T) {
	ix, eng := newTestIndexer(t)

	added, err := ix.IndexDocument(context.Background(), "a.md", "content to be removed later on")
	require.NoError(t, err)

	sum, err := ix.RemoveDocument(context.Background(), "a.md")
	require.NoError(t, err)
	assert.Equal(t, added.ChunksAdded, sum.ChunksRemoved)
	assert.Zero(t, eng.Store.Len())
	assert.Zero(t, eng.Index.Len())
	assert.NotContains(t, eng.Manifest.Fingerprints, "a.md")
}

func TestRemoveDocumentIdempotent(t *testing.T) {
	ix, _ := newTestIndexer(t)

	sum, err := ix.RemoveDocument(context.Background(), "never-indexed.md")
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
}

func TestIndexDocumentEmptyContent(t *testing.T) {
	ix, eng := newTestIndexer(t)

	sum, err := ix.IndexDocument(context.Background(), "empty.md", "")
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
	assert.Zero(t, eng.Store.Len())
	assert.Contains(t, eng.Manifest.Fingerprints, "empty.md", "empty documents are still tracked")
}
