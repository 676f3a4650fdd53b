// Package search resolves similarity queries against an engine.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/docdex/docdex/internal/engine"
)

// DefaultK is the number of results returned when the caller does not ask
// for a specific count.
const DefaultK = 3

// Result is one retrieval hit. Ephemeral: produced per query, never persisted.
type Result struct {
	ChunkID    string  `json:"chunk_id"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
	SourcePath string  `json:"source_path"`
	Offset     int     `json:"offset"`
}

// Options configures a query.
type Options struct {
	// K is the maximum number of results. Zero means DefaultK.
	K int
	// ScoreThreshold drops results scoring below it when positive.
	ScoreThreshold float64
}

// Retriever answers similarity queries: embed the query text, ask the vector
// index for nearest neighbors, resolve chunk IDs back to stored text.
type Retriever struct {
	eng *engine.Engine
	log *zap.Logger
}

// NewRetriever creates a Retriever over the given engine.
func NewRetriever(eng *engine.Engine, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{eng: eng, log: log}
}

// Query returns up to K chunks most similar to the query text, ordered by
// descending score. Querying an empty index returns an empty slice.
func (r *Retriever) Query(ctx context.Context, text string, opts Options) ([]Result, error) {
	if text == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}
	if opts.K <= 0 {
		opts.K = DefaultK
	}

	// The query must be embedded with the same backend the index was built
	// with; re-embedding with a different model would silently degrade every
	// score.
	if id := r.eng.Provider.ID(); id != r.eng.Manifest.BackendID {
		return nil, fmt.Errorf("index built with backend %q, configured backend is %q: %w",
			r.eng.Manifest.BackendID, id, engine.ErrConfigMismatch)
	}

	queryVec, err := r.eng.Provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.eng.Index.Search(queryVec, opts.K)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		if opts.ScoreThreshold > 0 && hit.Score < opts.ScoreThreshold {
			continue
		}
		chunk, err := r.eng.Store.Get(hit.ID)
		if err != nil {
			// The index returned an ID the store does not know. The engine
			// invariants forbid this; surface it instead of skipping.
			return nil, fmt.Errorf("resolve chunk %s: %w", hit.ID, engine.ErrInternalConsistency)
		}
		results = append(results, Result{
			ChunkID:    chunk.ID,
			Score:      hit.Score,
			Text:       chunk.Text,
			SourcePath: chunk.SourcePath,
			Offset:     chunk.Offset,
		})
	}

	r.log.Debug("query answered",
		zap.Int("k", opts.K),
		zap.Int("results", len(results)))
	return results, nil
}
