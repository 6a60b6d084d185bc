// Package watch re-reads basic file information whenever the filesystem
// reports activity on a watched path.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"macesnap/pkg/ntfileinfo"
)

// Querier reads the basic information of one path.
type Querier func(path string) (*ntfileinfo.Record, error)

// Update is emitted when a watched path's record changes or can no longer be
// read.
type Update struct {
	Path   string
	Record *ntfileinfo.Record
	Err    error
	Op     fsnotify.Op
}

// Watcher emits an Update whenever a path's basic information differs from
// the last one emitted for it.
type Watcher struct {
	query  Querier
	admit  func(path string) error
	logger *slog.Logger

	mu   sync.Mutex
	last map[string]*ntfileinfo.Record
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithAdmit rejects paths before anything is watched. Run fails on the first
// path admit refuses.
func WithAdmit(admit func(path string) error) Option {
	return func(w *Watcher) { w.admit = admit }
}

// New creates a Watcher that uses query to read paths.
func New(query Querier, logger *slog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		query:  query,
		logger: logger,
		last:   make(map[string]*ntfileinfo.Record),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches paths until ctx is done. The initial state of every path is
// emitted first. emit is called from a single goroutine.
func (w *Watcher) Run(ctx context.Context, paths []string, emit func(Update)) error {
	if len(paths) == 0 {
		return fmt.Errorf("no paths to watch")
	}

	if w.admit != nil {
		for _, p := range paths {
			if err := w.admit(p); err != nil {
				return fmt.Errorf("cannot watch %s: %w", p, err)
			}
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	// events are matched back to the caller's spelling of the path
	watched := make(map[string]string, len(paths))
	added := make(map[string]bool, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		// a file is watched through its directory so that replacing it by
		// rename does not drop the watch
		target := filepath.Clean(p)
		if !info.IsDir() {
			target = filepath.Dir(target)
		}
		if !added[target] {
			if err := fsw.Add(target); err != nil {
				return fmt.Errorf("failed to watch %s: %w", p, err)
			}
			added[target] = true
		}
		watched[filepath.Clean(p)] = p
	}
	for _, p := range paths {
		w.refresh(p, 0, emit)
	}
	w.logger.Info("Watching paths", "count", len(paths), "watches", len(added))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watch stopped")
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(ev.Name)
			w.logger.Debug("Filesystem event", "path", ev.Name, "op", ev.Op.String())
			if target, ok := watched[name]; ok {
				w.refresh(target, ev.Op, emit)
			}
			// activity on a child of a watched directory changes the
			// directory's own times
			if target, ok := watched[filepath.Dir(name)]; ok {
				w.refresh(target, ev.Op, emit)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) refresh(path string, op fsnotify.Op, emit func(Update)) {
	rec, err := w.query(path)

	w.mu.Lock()
	prev, seen := w.last[path]
	if err != nil {
		// report a failure once until the path reads again
		if seen && prev == nil {
			w.mu.Unlock()
			return
		}
		w.last[path] = nil
		w.mu.Unlock()
		w.logger.Warn("Failed to read path", "path", path, "error", err)
		emit(Update{Path: path, Err: err, Op: op})
		return
	}
	if seen && prev.Equal(rec) {
		w.mu.Unlock()
		return
	}
	w.last[path] = rec
	w.mu.Unlock()

	emit(Update{Path: path, Record: rec, Op: op})
}
