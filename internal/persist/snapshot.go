// Package persist serializes an engine to and from durable snapshots.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/engine"
	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/internal/vector"
)

// ErrCorruptIndex indicates a snapshot that could not be read, parsed, or
// validated. A corrupt snapshot is never partially loaded.
var ErrCorruptIndex = errors.New("corrupt index snapshot")

// snapshot is the on-disk representation: self-describing enough to reject a
// mismatched dimension or backend before anything is applied.
type snapshot struct {
	Manifest   *engine.Manifest `json:"manifest"`
	Chunks     []store.Chunk    `json:"chunks"`
	Embeddings []embeddingRec   `json:"embeddings"`
}

type embeddingRec struct {
	ChunkID string    `json:"chunk_id"`
	Vector  []float32 `json:"vector"`
}

// Save writes the engine to path atomically: the snapshot is encoded to a
// temporary file in the same directory and renamed over the target, so a
// crash mid-save never corrupts a previously valid snapshot.
func Save(eng *engine.Engine, path string) error {
	items := eng.Index.Items()
	snap := snapshot{
		Manifest:   eng.Manifest,
		Chunks:     eng.Store.All(),
		Embeddings: make([]embeddingRec, 0, len(items)),
	}
	for _, item := range items {
		snap.Embeddings = append(snap.Embeddings, embeddingRec{ChunkID: item.ID, Vector: item.Vector})
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(&snap); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Load restores an engine from the snapshot at path, rebuilding the vector
// index of the requested kind from the persisted embeddings.
//
// A missing snapshot reports os.ErrNotExist. The manifest must match the
// given provider's backend ID and dimension (engine.ErrConfigMismatch
// otherwise). Any parse or validation failure reports ErrCorruptIndex and
// leaves nothing applied.
func Load(path string, provider embed.Provider, kind vector.Kind) (*engine.Engine, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %v: %w", path, err, ErrCorruptIndex)
	}
	if snap.Manifest == nil {
		return nil, fmt.Errorf("snapshot %s has no manifest: %w", path, ErrCorruptIndex)
	}
	if snap.Manifest.Fingerprints == nil {
		snap.Manifest.Fingerprints = make(map[string]string)
	}
	if !snap.Manifest.Compatible(provider.ID(), provider.Dimensions()) {
		return nil, fmt.Errorf("snapshot built with backend %q (dim %d), configured backend is %q (dim %d): %w",
			snap.Manifest.BackendID, snap.Manifest.Dimensions,
			provider.ID(), provider.Dimensions(), engine.ErrConfigMismatch)
	}

	// Validate everything before touching the engine so a bad snapshot is
	// rejected whole.
	chunkIDs := make(map[string]bool, len(snap.Chunks))
	for _, c := range snap.Chunks {
		if c.ID == "" {
			return nil, fmt.Errorf("snapshot %s: chunk with empty id: %w", path, ErrCorruptIndex)
		}
		if chunkIDs[c.ID] {
			return nil, fmt.Errorf("snapshot %s: duplicate chunk id %q: %w", path, c.ID, ErrCorruptIndex)
		}
		chunkIDs[c.ID] = true
	}
	embedded := make(map[string]bool, len(snap.Embeddings))
	for _, rec := range snap.Embeddings {
		if !chunkIDs[rec.ChunkID] {
			return nil, fmt.Errorf("snapshot %s: embedding for unknown chunk %q: %w", path, rec.ChunkID, ErrCorruptIndex)
		}
		if len(rec.Vector) != snap.Manifest.Dimensions {
			return nil, fmt.Errorf("snapshot %s: embedding %q has %d dimensions, manifest says %d: %w",
				path, rec.ChunkID, len(rec.Vector), snap.Manifest.Dimensions, ErrCorruptIndex)
		}
		embedded[rec.ChunkID] = true
	}
	for _, c := range snap.Chunks {
		if !embedded[c.ID] {
			return nil, fmt.Errorf("snapshot %s: chunk %q has no embedding: %w", path, c.ID, ErrCorruptIndex)
		}
	}

	eng := &engine.Engine{
		Store:    store.New(),
		Index:    vector.New(kind, snap.Manifest.Dimensions),
		Manifest: snap.Manifest,
		Provider: provider,
	}
	for _, c := range snap.Chunks {
		if err := eng.Store.Put(c); err != nil {
			return nil, fmt.Errorf("snapshot %s: %v: %w", path, err, ErrCorruptIndex)
		}
	}
	for _, rec := range snap.Embeddings {
		if err := eng.Index.Insert(rec.ChunkID, rec.Vector); err != nil {
			return nil, fmt.Errorf("snapshot %s: %v: %w", path, err, ErrCorruptIndex)
		}
	}
	return eng, nil
}
