package vector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// HNSW is an approximate vector index backed by coder/hnsw. It trades exact
// tie-breaking and recall for sub-linear search on large corpora, behind the
// same Index contract as Flat.
type HNSW struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dims  int

	// String IDs map to graph keys. Deletions are lazy: the node stays in
	// the graph but loses its mapping, avoiding graph corruption when the
	// last node is removed.
	idMap   map[string]uint64
	keyMap  map[uint64]string
	vecs    map[uint64][]float32
	order   []string
	nextKey uint64
}

// NewHNSW creates an empty HNSW index with the given dimension.
func NewHNSW(dims int) *HNSW {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &HNSW{
		graph:  graph,
		dims:   dims,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
		vecs:   make(map[uint64][]float32),
	}
}

// Insert adds a vector under the given ID, replacing any existing mapping.
func (h *HNSW) Insert(id string, vec []float32) error {
	if len(vec) != h.dims {
		return fmt.Errorf("insert %q: expected %d dimensions, got %d: %w", id, h.dims, len(vec), ErrDimensionMismatch)
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)

	h.mu.Lock()
	defer h.mu.Unlock()

	if oldKey, exists := h.idMap[id]; exists {
		delete(h.keyMap, oldKey)
		delete(h.vecs, oldKey)
		delete(h.idMap, id)
	} else {
		h.order = append(h.order, id)
	}

	key := h.nextKey
	h.nextKey++

	h.graph.Add(hnsw.MakeNode(key, stored))
	h.idMap[id] = key
	h.keyMap[key] = id
	h.vecs[key] = stored
	return nil
}

// Delete removes the vector with the given ID. Idempotent.
func (h *HNSW) Delete(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key, exists := h.idMap[id]
	if !exists {
		return
	}
	delete(h.keyMap, key)
	delete(h.vecs, key)
	delete(h.idMap, id)
}

// Search returns up to k approximate nearest neighbors by cosine similarity.
func (h *HNSW) Search(vec []float32, k int) ([]Hit, error) {
	if len(vec) != h.dims {
		return nil, fmt.Errorf("search: expected %d dimensions, got %d: %w", h.dims, len(vec), ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.idMap) == 0 {
		return nil, nil
	}

	// Over-fetch to compensate for lazily deleted nodes still in the graph.
	fetch := k + (h.graph.Len() - len(h.idMap))
	nodes := h.graph.Search(vec, fetch)

	hits := make([]Hit, 0, k)
	for _, node := range nodes {
		id, live := h.keyMap[node.Key]
		if !live {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: Cosine(vec, node.Value)})
		if len(hits) == k {
			break
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}

// Dimensions returns the fixed vector dimension.
func (h *HNSW) Dimensions() int {
	return h.dims
}

// Len returns the number of live vectors.
func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idMap)
}

// Items returns all live vectors in insertion order. A re-inserted ID keeps
// its original position.
func (h *HNSW) Items() []Item {
	h.mu.RLock()
	defer h.mu.RUnlock()

	items := make([]Item, 0, len(h.idMap))
	for _, id := range h.order {
		key, live := h.idMap[id]
		if !live {
			continue
		}
		vec := make([]float32, len(h.vecs[key]))
		copy(vec, h.vecs[key])
		items = append(items, Item{ID: id, Vector: vec})
	}
	return items
}
