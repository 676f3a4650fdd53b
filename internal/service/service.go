// Package service wires the engine, indexer, and retriever into the
// single-writer unit the MCP and HTTP servers sit on.
package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/engine"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/persist"
	"github.com/docdex/docdex/internal/search"
	"github.com/docdex/docdex/internal/source"
	"github.com/docdex/docdex/internal/vector"
)

// Service owns one engine and serializes writes to it. The engine itself
// takes no cross-structure locks, so all mutation funnels through the
// service's write lock; queries take the read side.
type Service struct {
	mu        sync.RWMutex
	root      string
	cfg       *config.Config
	eng       *engine.Engine
	indexer   *index.Indexer
	retriever *search.Retriever
	src       *source.DirSource
	log       *zap.Logger
}

// Open builds the configured provider and restores the engine from the
// project's snapshot, or starts fresh when none exists. With rebuild set,
// any existing snapshot is ignored; this is the explicit re-index path a
// backend change requires.
func Open(root string, cfg *config.Config, log *zap.Logger, rebuild bool) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}

	provider, err := embed.New(embed.Config{
		Backend:    cfg.Embedding.Backend,
		Dimensions: cfg.Embedding.Dimensions,
		Model:      cfg.Embedding.Model,
		URL:        cfg.Embedding.OllamaURL,
		APIKey:     cfg.Embedding.OpenAIAPIKey,
		BaseURL:    cfg.Embedding.OpenAIBaseURL,
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("configure embedding backend: %w", err)
	}

	kind := vector.Kind(cfg.Indexing.VectorIndex)
	var eng *engine.Engine
	if rebuild {
		eng = engine.New(provider, kind)
	} else {
		eng, err = persist.Load(cfg.SnapshotPath(root), provider, kind)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist):
			eng = engine.New(provider, kind)
		case errors.Is(err, engine.ErrConfigMismatch):
			return nil, fmt.Errorf("%w; run `docdex index --rebuild` to re-embed with the current backend", err)
		default:
			return nil, err
		}
	}

	docsDir := cfg.DocsDir
	if !filepath.IsAbs(docsDir) {
		docsDir = filepath.Join(root, docsDir)
	}
	src, err := source.NewDirSource(docsDir, cfg.Indexing.IgnorePatterns, cfg.Indexing.MaxFileSize)
	if err != nil {
		return nil, err
	}

	chunkCfg := index.ChunkerConfig{
		WindowSize: cfg.Indexing.WindowSize,
		Overlap:    cfg.Indexing.Overlap,
	}
	s := &Service{
		root:      root,
		cfg:       cfg,
		eng:       eng,
		indexer:   index.NewIndexer(eng, chunkCfg, log),
		retriever: search.NewRetriever(eng, log),
		src:       src,
		log:       log,
	}
	return s, nil
}

// SyncDocs indexes every document under the docs directory and removes index
// entries for documents that no longer exist, then persists a snapshot.
func (s *Service) SyncDocs(ctx context.Context) (index.Summary, error) {
	docs, err := s.src.List(ctx)
	if err != nil {
		return index.Summary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var total index.Summary
	current := make(map[string]bool, len(docs))
	for _, doc := range docs {
		current[doc.Path] = true
		sum, err := s.indexer.IndexDocument(ctx, doc.Path, doc.Content)
		if err != nil {
			return total, err
		}
		total.ChunksAdded += sum.ChunksAdded
		total.ChunksRemoved += sum.ChunksRemoved
	}

	// Drop documents that vanished since the last sync.
	for path := range s.eng.Manifest.Fingerprints {
		if current[path] {
			continue
		}
		sum, err := s.indexer.RemoveDocument(ctx, path)
		if err != nil {
			return total, err
		}
		total.ChunksRemoved += sum.ChunksRemoved
	}

	if err := s.save(); err != nil {
		return total, err
	}
	return total, nil
}

// IndexDocument indexes one document and persists a snapshot.
func (s *Service) IndexDocument(ctx context.Context, path, content string) (index.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, err := s.indexer.IndexDocument(ctx, path, content)
	if err != nil {
		return sum, err
	}
	if sum == (index.Summary{}) {
		return sum, nil // unchanged, nothing to persist
	}
	return sum, s.save()
}

// RemoveDocument removes one document and persists a snapshot.
func (s *Service) RemoveDocument(ctx context.Context, path string) (index.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, err := s.indexer.RemoveDocument(ctx, path)
	if err != nil {
		return sum, err
	}
	if sum.ChunksRemoved == 0 {
		return sum, nil
	}
	return sum, s.save()
}

// Rebuild discards the current engine and re-embeds the whole docs
// directory. Required after switching embedding backends.
func (s *Service) Rebuild(ctx context.Context) (index.Summary, error) {
	s.mu.Lock()
	fresh := engine.New(s.eng.Provider, vector.Kind(s.cfg.Indexing.VectorIndex))
	s.eng = fresh
	s.indexer = index.NewIndexer(fresh, index.ChunkerConfig{
		WindowSize: s.cfg.Indexing.WindowSize,
		Overlap:    s.cfg.Indexing.Overlap,
	}, s.log)
	s.retriever = search.NewRetriever(fresh, s.log)
	s.mu.Unlock()

	return s.SyncDocs(ctx)
}

// Query answers a similarity query. Zero k and negative threshold fall back
// to the configured defaults; a threshold of exactly zero keeps every hit.
func (s *Service) Query(ctx context.Context, text string, k int, threshold float64) ([]search.Result, error) {
	if k <= 0 {
		k = s.cfg.Search.TopK
	}
	if threshold < 0 {
		threshold = s.cfg.Search.ScoreThreshold
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retriever.Query(ctx, text, search.Options{K: k, ScoreThreshold: threshold})
}

// Status describes the service's current index.
type Status struct {
	DocsDir      string       `json:"docs_dir"`
	SnapshotPath string       `json:"snapshot_path"`
	Engine       engine.Stats `json:"engine"`
}

// Status returns a summary of the index.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		DocsDir:      s.src.Root(),
		SnapshotPath: s.cfg.SnapshotPath(s.root),
		Engine:       s.eng.Stats(),
	}
}

// Watch keeps the index synced with the docs directory until ctx is
// canceled. Changes are applied through the service, so writes stay
// serialized and every applied change is persisted.
func (s *Service) Watch(ctx context.Context, debounce time.Duration) error {
	w := index.NewWatcher(s.src, s, debounce, s.log)
	return w.Run(ctx)
}

// Save persists a snapshot of the engine.
func (s *Service) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

func (s *Service) save() error {
	return persist.Save(s.eng, s.cfg.SnapshotPath(s.root))
}
