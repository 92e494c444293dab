package batch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ticketflow/internal/logging"
	"ticketflow/internal/ocr"
)

// watchDebounce is how long a file must stay quiet before processing, so
// half-copied scans are not picked up mid-write.
const watchDebounce = 2 * time.Second

// Watcher ingests files as they land in a directory. Each settled file runs
// as its own single-file batch with its own ledger entry.
type Watcher struct {
	runner *Runner

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher wraps a runner.
func NewWatcher(r *Runner) *Watcher {
	return &Watcher{runner: r, pending: make(map[string]*time.Timer)}
}

// Watch blocks until the context is canceled, processing every accepted
// file created or rewritten under dir.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(dir); err != nil {
		return err
	}
	logging.Watch("Watching %s for new scans", dir)

	ready := make(chan string)
	defer w.drainPending()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !ocr.AcceptedExtensions[strings.ToLower(filepath.Ext(ev.Name))] {
				continue
			}
			w.schedule(ctx, ev.Name, ready)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.Get(logging.CategoryWatch).Warn("Watcher error: %v", err)
		case path := <-ready:
			logging.Watch("Processing new file %s", path)
			if _, err := w.runner.Run(ctx, []string{path}); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logging.Get(logging.CategoryWatch).Error("Failed to process %s: %v", path, err)
			}
		}
	}
}

// schedule arms (or re-arms) the debounce timer for a path. The timer fires
// into ready once the file has been quiet for the debounce window.
func (w *Watcher) schedule(ctx context.Context, path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(watchDebounce)
		return
	}
	w.pending[path] = time.AfterFunc(watchDebounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) drainPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}
