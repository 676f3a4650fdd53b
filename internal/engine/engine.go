// Package engine ties the document store, vector index, and manifest into a
// single explicit index object.
package engine

import (
	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/internal/vector"
)

// Engine is one retrieval index: chunks, their embeddings, and the manifest
// describing how they were produced. It is constructed fresh or restored from
// a snapshot, and passed explicitly to the indexer and retriever; there is no
// ambient global state.
//
// The engine itself takes no locks across its structures. Callers must
// serialize writes (index/remove operations); reads are safe concurrently
// when no write is in flight.
type Engine struct {
	Store    *store.Store
	Index    vector.Index
	Manifest *Manifest
	Provider embed.Provider
}

// New creates an empty engine bound to the given provider, using the
// specified vector index kind.
func New(provider embed.Provider, kind vector.Kind) *Engine {
	return &Engine{
		Store:    store.New(),
		Index:    vector.New(kind, provider.Dimensions()),
		Manifest: NewManifest(provider.ID(), provider.Dimensions()),
		Provider: provider,
	}
}

// Stats summarizes engine contents.
type Stats struct {
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	Vectors    int    `json:"vectors"`
	BackendID  string `json:"backend_id"`
	Dimensions int    `json:"dimensions"`
}

// Stats returns a summary of the engine's contents.
func (e *Engine) Stats() Stats {
	return Stats{
		Documents:  len(e.Manifest.Fingerprints),
		Chunks:     e.Store.Len(),
		Vectors:    e.Index.Len(),
		BackendID:  e.Manifest.BackendID,
		Dimensions: e.Manifest.Dimensions,
	}
}
