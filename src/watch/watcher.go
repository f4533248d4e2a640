// Package watch re-runs an analysis whenever a CSV export lands in a directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tweet-sentiment/src/source"
)

// DefaultDebounce is how long a file must stay quiet before it is handled.
const DefaultDebounce = 500 * time.Millisecond

// Handler is called once per settled export file.
type Handler func(ctx context.Context, path string) error

// Watcher watches one directory for .csv and .csv.gz files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	debounce time.Duration
	handler  Handler

	mu      sync.Mutex
	pending map[string]time.Time
}

// New starts watching dir. A debounce of zero or less uses DefaultDebounce.
// Events are buffered until Run is called.
func New(dir string, debounce time.Duration, handler Handler) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{
		fsw:      fsw,
		dir:      dir,
		debounce: debounce,
		handler:  handler,
		pending:  make(map[string]time.Time),
	}, nil
}

// Run handles events until ctx is done, then releases the watch. Handler errors
// are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()
	slog.Info("Watching for exports", "dir", w.dir, "debounce", w.debounce)

	tick := time.NewTicker(max(min(w.debounce/2, 100*time.Millisecond), time.Millisecond))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.record(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", "error", err)

		case now := <-tick.C:
			for _, path := range w.settled(now) {
				if err := w.handler(ctx, path); err != nil {
					slog.Warn("Export analysis failed", "path", path, "error", err)
				}
			}
		}
	}
}

// Close releases the watch. It is safe to call more than once.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) record(event fsnotify.Event) {
	if !source.IsExport(event.Name) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		slog.Debug("Export changed", "path", event.Name, "op", event.Op.String())
		w.pending[event.Name] = time.Now()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
	}
}

// settled removes and returns the paths quiet for at least the debounce window.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}
