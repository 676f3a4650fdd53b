// Package vector provides vector indexes and cosine similarity search.
package vector

import (
	"errors"
	"math"
)

// ErrDimensionMismatch indicates a vector whose length disagrees with the
// index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Hit is a single similarity search result.
type Hit struct {
	ID    string
	Score float64
}

// Item is an identified vector, as stored in the index. Returned by Items in
// insertion order for snapshotting.
type Item struct {
	ID     string
	Vector []float32
}

// Index holds embeddings keyed by chunk identifier.
//
// All vectors in one index share the same dimension; Insert and Search reject
// mismatched vectors with ErrDimensionMismatch. Implementations may be exact
// or approximate, but expose the same contract.
type Index interface {
	// Insert adds a vector under the given ID. Inserting an existing ID
	// replaces its vector.
	Insert(id string, vec []float32) error

	// Delete removes the vector with the given ID. No-op if absent.
	Delete(id string)

	// Search returns up to k nearest neighbors by cosine similarity,
	// ordered by descending score.
	Search(vec []float32, k int) ([]Hit, error)

	// Dimensions returns the fixed vector dimension of this index.
	Dimensions() int

	// Len returns the number of vectors held.
	Len() int

	// Items returns all identified vectors in insertion order.
	Items() []Item
}

// Kind names an index implementation.
type Kind string

const (
	// KindFlat is the exact exhaustive-scan index.
	KindFlat Kind = "flat"
	// KindHNSW is the approximate graph index.
	KindHNSW Kind = "hnsw"
)

// New constructs an index of the given kind. Unknown kinds fall back to flat.
func New(kind Kind, dims int) Index {
	switch kind {
	case KindHNSW:
		return NewHNSW(dims)
	default:
		return NewFlat(dims)
	}
}

// Cosine computes cosine similarity between two equal-length vectors: the dot
// product divided by the product of magnitudes. A zero-magnitude vector has
// similarity 0 with every other vector.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
