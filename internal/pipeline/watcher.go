package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/memweave/memweave/internal/vault"
)

// DefaultDebounce is how long the watcher waits after the last write to
// a note before re-ingesting it. Editors often emit several events per
// save.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-ingests notes as they change on disk.
type Watcher struct {
	pipeline *Pipeline
	root     string
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a Watcher over the pipeline's vault root.
func NewWatcher(p *Pipeline) *Watcher {
	return &Watcher{
		pipeline: p,
		root:     p.vault.Root(),
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
	}
}

// SetDebounce overrides the debounce window. Must be called before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run watches the vault until the context is cancelled. Subdirectories
// are watched recursively; new directories are picked up as they
// appear.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := w.addRecursive(fsw, w.root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	// New directories join the watch set.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !isHidden(info.Name()) {
				_ = w.addRecursive(fsw, event.Name)
			}
			return
		}
	}

	if !vault.IsNote(event.Name) {
		return
	}
	relPath, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		w.cancelPath(relPath)
		if err := w.pipeline.RemoveNote(ctx, relPath); err != nil {
			log.Printf("failed to remove note %s: %v", relPath, err)
		}

	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		w.scheduleIngest(ctx, relPath)
	}
}

// scheduleIngest (re)starts the debounce timer for a note.
func (w *Watcher) scheduleIngest(ctx context.Context, relPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[relPath]; ok {
		timer.Stop()
	}
	w.pending[relPath] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, relPath)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if _, err := w.pipeline.IngestNote(ctx, relPath); err != nil {
			log.Printf("failed to ingest note %s: %v", relPath, err)
		}
	})
}

func (w *Watcher) cancelPath(relPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[relPath]; ok {
		timer.Stop()
		delete(w.pending, relPath)
	}
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// addRecursive watches a directory tree, skipping hidden directories.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if isHidden(info.Name()) && path != root {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
