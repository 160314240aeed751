package vfs

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Invalidation is a change notification for a path under the build root.
type Invalidation struct {
	// Path is relative to the build root, slash-separated.
	Path string
}

// watcher wraps an fsnotify watcher over a fixed set of directories.
type watcher struct {
	fsw    *fsnotify.Watcher
	ignore *IgnoreSet
	out    chan Invalidation

	mu      sync.Mutex
	watched []string
	root    string
}

func newWatcher(ignore *IgnoreSet, root string, dirs []string) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &watcher{
		fsw:    fsw,
		ignore: ignore,
		out:    make(chan Invalidation, 64),
		root:   root,
	}
	for _, d := range dirs {
		if err := w.add(d); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	go w.run()
	return w, nil
}

func (w *watcher) add(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.mu.Lock()
	w.watched = append(w.watched, dir)
	w.mu.Unlock()
	return nil
}

func (w *watcher) dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.watched))
	copy(out, w.watched)
	return out
}

func (w *watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				close(w.out)
				return
			}
			rel, err := filepath.Rel(w.root, ev.Name)
			if err != nil || w.root == "" {
				rel = ev.Name
			}
			rel = filepath.ToSlash(rel)
			if w.ignore.Match(rel) {
				continue
			}
			// Drop on overflow rather than block the notify goroutine; a
			// missed invalidation degrades to a full rescan upstream.
			select {
			case w.out <- Invalidation{Path: rel}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				close(w.out)
				return
			}
			slog.Warn("vfs watcher error", "error", err)
		}
	}
}

func (w *watcher) close() {
	_ = w.fsw.Close()
}

// Watch starts watching the build root (non-recursive) plus any directories
// already returned by Scan's callers via WatchDir. Idempotent per FS until
// Reinit replaces the watcher.
func (f *FS) Watch() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.watcher != nil {
		return nil
	}
	w, err := newWatcher(f.ignore, f.root, []string{f.root})
	if err != nil {
		return err
	}
	f.watcher = w
	return nil
}

// WatchDir adds a directory (relative to the build root) to the watch set.
func (f *FS) WatchDir(rel string) error {
	f.mu.RLock()
	w := f.watcher
	f.mu.RUnlock()

	if w == nil {
		return fmt.Errorf("watch %s: watcher not started", rel)
	}
	return w.add(filepath.Join(f.root, filepath.FromSlash(rel)))
}

// Invalidations returns the change notification channel, or nil if the
// watcher has not been started. The channel is replaced by Reinit; callers
// re-fetch it after a fork.
func (f *FS) Invalidations() <-chan Invalidation {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.watcher == nil {
		return nil
	}
	return f.watcher.out
}

// Close releases the watcher and drains the executor.
func (f *FS) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watcher != nil {
		f.watcher.close()
		f.watcher = nil
	}
	f.executor.Close()
}
