package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/docdex/docdex/internal/engine"
	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/internal/vector"
)

// Summary reports the effect of one index or remove operation.
type Summary struct {
	ChunksAdded   int `json:"chunks_added"`
	ChunksRemoved int `json:"chunks_removed"`
}

// Indexer orchestrates ingestion: it splits documents into chunks, requests
// embeddings, and writes chunks and vectors into the engine.
//
// Per-document indexing is atomic. All embeddings for a document are staged
// before anything is written, so a backend failure mid-document leaves the
// engine exactly as it was; the index never holds a chunk without its
// embedding.
type Indexer struct {
	eng     *engine.Engine
	chunker *Chunker
	log     *zap.Logger
}

// NewIndexer creates an Indexer over the given engine.
func NewIndexer(eng *engine.Engine, cfg ChunkerConfig, log *zap.Logger) *Indexer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{
		eng:     eng,
		chunker: NewChunker(cfg),
		log:     log,
	}
}

// staged is one chunk+embedding pair held back until the whole document
// embedded successfully.
type staged struct {
	chunk store.Chunk
	vec   []float32
}

// IndexDocument ingests one document. Unchanged content (by fingerprint) is a
// no-op returning {0, 0}. Changed or new content replaces all of the
// document's previous chunks; other documents are untouched.
func (ix *Indexer) IndexDocument(ctx context.Context, path, content string) (Summary, error) {
	fp := engine.Fingerprint(content)
	if prev, ok := ix.eng.Manifest.Fingerprints[path]; ok && prev == fp {
		ix.log.Debug("document unchanged", zap.String("path", path))
		return Summary{}, nil
	}

	spans := ix.chunker.Split(content)

	// Stage every chunk+embedding pair before touching the engine.
	batch := make([]staged, 0, len(spans))
	if len(spans) > 0 {
		texts := make([]string, len(spans))
		for i, sp := range spans {
			texts[i] = sp.Text
		}
		vectors, err := ix.eng.Provider.EmbedBatch(ctx, texts)
		if err != nil {
			return Summary{}, fmt.Errorf("embed document %s: %w", path, err)
		}

		docID := docIDFor(path)
		dims := ix.eng.Index.Dimensions()
		for i, sp := range spans {
			if len(vectors[i]) != dims {
				return Summary{}, fmt.Errorf("embed document %s: chunk %d: expected %d dimensions, got %d: %w",
					path, i, dims, len(vectors[i]), vector.ErrDimensionMismatch)
			}
			batch = append(batch, staged{
				chunk: store.Chunk{
					ID:         fmt.Sprintf("%s:%d", docID, i),
					Text:       sp.Text,
					SourcePath: path,
					Offset:     sp.Offset,
					Length:     sp.Length,
				},
				vec: vectors[i],
			})
		}
	}

	// Commit: drop the document's old chunks, then insert the staged pairs,
	// chunk before embedding so every vector always references a live chunk.
	removed := ix.eng.Store.DeleteBySource(path)
	for _, id := range removed {
		ix.eng.Index.Delete(id)
	}
	for _, st := range batch {
		if err := ix.eng.Store.Put(st.chunk); err != nil {
			return Summary{}, fmt.Errorf("store chunk %s: %w", st.chunk.ID, err)
		}
		if err := ix.eng.Index.Insert(st.chunk.ID, st.vec); err != nil {
			return Summary{}, fmt.Errorf("index chunk %s: %w", st.chunk.ID, err)
		}
	}
	ix.eng.Manifest.Fingerprints[path] = fp

	ix.log.Info("indexed document",
		zap.String("path", path),
		zap.Int("chunks_added", len(batch)),
		zap.Int("chunks_removed", len(removed)))
	return Summary{ChunksAdded: len(batch), ChunksRemoved: len(removed)}, nil
}

// RemoveDocument drops a document's chunks and fingerprint. Idempotent:
// removing a never-indexed path returns {0, 0} without error.
func (ix *Indexer) RemoveDocument(_ context.Context, path string) (Summary, error) {
	removed := ix.eng.Store.DeleteBySource(path)
	for _, id := range removed {
		ix.eng.Index.Delete(id)
	}
	delete(ix.eng.Manifest.Fingerprints, path)

	if len(removed) > 0 {
		ix.log.Info("removed document",
			zap.String("path", path),
			zap.Int("chunks_removed", len(removed)))
	}
	return Summary{ChunksRemoved: len(removed)}, nil
}

// docIDFor derives the stable document identifier chunk IDs hang off.
func docIDFor(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:16]
}
