package vector

import (
	"container/heap"
	"fmt"
	"sync"
)

// Flat is an exact vector index backed by an exhaustive linear scan with a
// bounded top-k heap. At reference-document scale this beats approximate
// structures on both simplicity and recall; swap in HNSW via the Index
// interface when corpora outgrow it.
//
// Equal-score ties rank by insertion order, earlier first, so results are
// deterministic across runs.
type Flat struct {
	mu      sync.RWMutex
	dims    int
	entries []flatEntry
	pos     map[string]int
	live    int
}

type flatEntry struct {
	id  string // empty for tombstones
	vec []float32
}

// NewFlat creates an empty flat index with the given dimension.
func NewFlat(dims int) *Flat {
	return &Flat{
		dims: dims,
		pos:  make(map[string]int),
	}
}

// Insert adds a vector under the given ID. A failed insert leaves the index
// unchanged. Re-inserting an existing ID replaces the vector in place,
// keeping its original insertion rank.
func (f *Flat) Insert(id string, vec []float32) error {
	if len(vec) != f.dims {
		return fmt.Errorf("insert %q: expected %d dimensions, got %d: %w", id, f.dims, len(vec), ErrDimensionMismatch)
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)

	f.mu.Lock()
	defer f.mu.Unlock()

	if i, ok := f.pos[id]; ok {
		f.entries[i].vec = stored
		return nil
	}
	f.entries = append(f.entries, flatEntry{id: id, vec: stored})
	f.pos[id] = len(f.entries) - 1
	f.live++
	return nil
}

// Delete removes the vector with the given ID. Idempotent: deleting an absent
// ID is a no-op. The slot is tombstoned; slots are not reused, which keeps
// insertion ranks stable for tie-breaking.
func (f *Flat) Delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.pos[id]
	if !ok {
		return
	}
	f.entries[i] = flatEntry{}
	delete(f.pos, id)
	f.live--
}

// Search scans every live vector and returns up to k hits ordered by
// descending cosine similarity.
func (f *Flat) Search(vec []float32, k int) ([]Hit, error) {
	if len(vec) != f.dims {
		return nil, fmt.Errorf("search: expected %d dimensions, got %d: %w", f.dims, len(vec), ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	// Min-heap of size k; the root is the current worst hit. Among equal
	// scores the later insertion is worse, so earlier entries survive.
	h := make(topK, 0, k)
	for rank, e := range f.entries {
		if e.id == "" {
			continue
		}
		cand := rankedHit{id: e.id, score: Cosine(vec, e.vec), rank: rank}
		if len(h) < k {
			heap.Push(&h, cand)
			continue
		}
		if h.less(h[0], cand) {
			h[0] = cand
			heap.Fix(&h, 0)
		}
	}

	// Pop ascending, fill the result back to front.
	hits := make([]Hit, len(h))
	for i := len(hits) - 1; i >= 0; i-- {
		worst := heap.Pop(&h).(rankedHit)
		hits[i] = Hit{ID: worst.id, Score: worst.score}
	}
	return hits, nil
}

// Dimensions returns the fixed vector dimension.
func (f *Flat) Dimensions() int {
	return f.dims
}

// Len returns the number of live vectors.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.live
}

// Items returns all live vectors in insertion order.
func (f *Flat) Items() []Item {
	f.mu.RLock()
	defer f.mu.RUnlock()

	items := make([]Item, 0, f.live)
	for _, e := range f.entries {
		if e.id == "" {
			continue
		}
		vec := make([]float32, len(e.vec))
		copy(vec, e.vec)
		items = append(items, Item{ID: e.id, Vector: vec})
	}
	return items
}

type rankedHit struct {
	id    string
	score float64
	rank  int
}

// topK is a min-heap ordered worst-first.
type topK []rankedHit

func (h topK) Len() int { return len(h) }

// less reports whether a is a worse hit than b.
func (h topK) less(a, b rankedHit) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.rank > b.rank
}

func (h topK) Less(i, j int) bool { return h.less(h[i], h[j]) }
func (h topK) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *topK) Push(x any) { *h = append(*h, x.(rankedHit)) }

func (h *topK) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
