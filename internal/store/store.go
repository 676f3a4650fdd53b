// Package store holds source text chunks with stable identifiers.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound indicates a chunk lookup miss.
var ErrNotFound = errors.New("chunk not found")

// Chunk is a contiguous span of a source document's text, the unit of
// embedding and retrieval. Chunks are immutable once created and are removed
// only when their source document is removed or re-indexed.
type Chunk struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	SourcePath string `json:"source_path"`
	Offset     int    `json:"offset"`
	Length     int    `json:"length"`
}

// Store is an in-memory document store keyed by chunk ID.
//
// The indexer is the exclusive mutator. Reads are safe concurrently with each
// other; callers must not read while a write is in flight (the host serializes
// index/remove operations).
type Store struct {
	mu       sync.RWMutex
	chunks   map[string]Chunk
	bySource map[string][]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		chunks:   make(map[string]Chunk),
		bySource: make(map[string][]string),
	}
}

// Put inserts a chunk. Inserting a duplicate ID is an error: chunk IDs are
// unique within a store instance.
func (s *Store) Put(c Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.chunks[c.ID]; exists {
		return fmt.Errorf("duplicate chunk id %q", c.ID)
	}
	s.chunks[c.ID] = c
	s.bySource[c.SourcePath] = append(s.bySource[c.SourcePath], c.ID)
	return nil
}

// Get returns the chunk with the given ID, or ErrNotFound.
func (s *Store) Get(id string) (Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chunks[id]
	if !ok {
		return Chunk{}, fmt.Errorf("chunk %q: %w", id, ErrNotFound)
	}
	return c, nil
}

// DeleteBySource removes all chunks whose source path matches, returning the
// removed identifiers so the vector index can be kept consistent. Removing an
// unknown path returns nil.
func (s *Store) DeleteBySource(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.bySource[path]
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		delete(s.chunks, id)
	}
	delete(s.bySource, path)
	return ids
}

// Sources returns the indexed source paths with their chunk counts.
func (s *Store) Sources() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.bySource))
	for path, ids := range s.bySource {
		out[path] = len(ids)
	}
	return out
}

// Len returns the number of chunks held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// All returns every chunk ordered by source path and offset. Used by the
// persistence layer to produce stable snapshots.
func (s *Store) All() []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourcePath != out[j].SourcePath {
			return out[i].SourcePath < out[j].SourcePath
		}
		return out[i].Offset < out[j].Offset
	})
	return out
}
