package index

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/docdex/docdex/internal/source"
)

// DefaultDebounce batches bursts of filesystem events before reindexing.
const DefaultDebounce = 500 * time.Millisecond

// Applier receives document changes detected by the watcher. *Indexer
// satisfies it; hosts that need to serialize writes or persist after each
// change wrap it.
type Applier interface {
	IndexDocument(ctx context.Context, path, content string) (Summary, error)
	RemoveDocument(ctx context.Context, path string) (Summary, error)
}

// Watcher keeps the index in sync with the docs directory. Filesystem events
// are debounced and applied from a single goroutine, so engine writes stay
// serialized; queries remain safe between batches.
type Watcher struct {
	src      *source.DirSource
	apply    Applier
	debounce time.Duration
	log      *zap.Logger
}

// NewWatcher creates a Watcher over the given source and applier.
func NewWatcher(src *source.DirSource, apply Applier, debounce time.Duration, log *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		src:      src,
		apply:    apply,
		debounce: debounce,
		log:      log,
	}
}

// Run watches until the context is canceled. It returns the watcher setup
// error, if any; apply failures are logged and retried on the next event.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := addRecursive(fsw, w.src.Root()); err != nil {
		return err
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			// New directories need their own watch before their contents
			// produce events.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRecursive(fsw, event.Name)
					continue
				}
			}

			rel, err := filepath.Rel(w.src.Root(), event.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if !w.src.Accepts(rel) {
				continue
			}

			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			batch := pending
			pending = make(map[string]struct{})
			w.applyBatch(ctx, batch)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// applyBatch reindexes or removes each changed path.
func (w *Watcher) applyBatch(ctx context.Context, batch map[string]struct{}) {
	for rel := range batch {
		doc, err := w.src.Read(rel)
		switch {
		case err == nil:
			if _, err := w.apply.IndexDocument(ctx, doc.Path, doc.Content); err != nil {
				w.log.Warn("reindex failed", zap.String("path", rel), zap.Error(err))
			}
		case errors.Is(err, fs.ErrNotExist):
			if _, err := w.apply.RemoveDocument(ctx, rel); err != nil {
				w.log.Warn("remove failed", zap.String("path", rel), zap.Error(err))
			}
		default:
			w.log.Warn("read failed", zap.String("path", rel), zap.Error(err))
		}
	}
}

// addRecursive watches dir and every subdirectory beneath it.
func addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		return fsw.Add(p)
	})
}
