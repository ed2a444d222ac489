// Package watcher turns filesystem activity under the spec directory into
// debounced change batches.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alucardeht/may-la-specs/internal/logger"
)

var log = logger.ForComponent("watcher")

// Filter decides whether a file is relevant. Directories are followed
// regardless unless the config ignores them.
type Filter func(path string) bool

type Watcher struct {
	config Config
	filter Filter
	notify func([]Change)
	fs     *fsnotify.Watcher

	mu     sync.Mutex
	roots  []string
	closed bool
}

// New prepares a watcher that hands each debounced batch of relevant
// changes to notify. A nil filter accepts every file. Nothing is observed
// until AddRoot and Run are called.
func New(config Config, filter Filter, notify func([]Change)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{config: config, filter: filter, notify: notify, fs: fsw}, nil
}

// AddRoot watches root and every directory below it that is not ignored.
func (w *Watcher) AddRoot(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	n, err := w.watchTree(abs, nil)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.roots = append(w.roots, abs)
	w.mu.Unlock()
	log.Info("watching spec directory", "path", abs, "directories", n)
	return nil
}

func (w *Watcher) Roots() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// watchTree registers top and its subdirectories. Files met on the way
// are passed to found, which lets a directory that appeared after startup
// report the files written into it before it was registered.
func (w *Watcher) watchTree(top string, found func(path string)) (int, error) {
	dirs := 0
	err := filepath.WalkDir(top, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == top {
				return err
			}
			log.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			if found != nil {
				found(path)
			}
			return nil
		}
		if path != top && w.config.Ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			if path == top {
				return err
			}
			log.Debug("cannot watch directory", "path", path, "error", err)
			return filepath.SkipDir
		}
		dirs++
		return nil
	})
	return dirs, err
}

// Run delivers batches until ctx is done. Pending changes are flushed and
// the watcher is closed before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	batcher := NewDebouncer(w.config.DebounceWindow, w.config.MaxBatchSize, w.deliver)
	defer w.Close()
	defer batcher.Stop()

	log.Info("file watcher started", "debounce", w.config.DebounceWindow)
	defer log.Info("file watcher stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.observe(ev, batcher)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) observe(ev fsnotify.Event, batcher *Debouncer) {
	log.Debug("file event", "path", ev.Name, "op", ev.Op.String())
	if w.config.Ignored(ev.Name) {
		return
	}

	now := time.Now()
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_, err := w.watchTree(ev.Name, func(path string) {
				if w.relevant(path) {
					batcher.Add(Change{Path: path, Op: OpCreate, At: now})
				}
			})
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				log.Debug("cannot follow new directory", "path", ev.Name, "error", err)
			}
			return
		}
	}

	op, ok := opOf(ev)
	if !ok || !w.relevant(ev.Name) {
		return
	}
	batcher.Add(Change{Path: ev.Name, Op: op, At: now})
}

func (w *Watcher) relevant(path string) bool {
	return !w.config.Ignored(path) && (w.filter == nil || w.filter(path))
}

func (w *Watcher) deliver(changes []Change) {
	log.Debug("delivering changes", "count", len(changes), "ops", opCounts(changes))
	if w.notify != nil {
		w.notify(changes)
	}
}

// Close releases the underlying fsnotify watcher. It is safe to call more
// than once and without Run.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.fs.Close()
}
