// Package vfs provides the virtual filesystem rooted at the build root.
//
// The FS filters everything it serves through gitignore-style patterns, owns
// a private executor for parallel reads, and can optionally watch the build
// root for changes. The executor and watcher are OS-level resources that do
// not survive a process fork; Reinit rebuilds both and is invoked by the
// core's post-fork protocol before any new work is scheduled.
package vfs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/loomworks/loom/internal/pool"
)

// FS is the virtual filesystem.
//
// Thread-safety: all methods are safe for concurrent use. The executor and
// watcher are guarded by a read/write lock so Reinit can replace them while
// readers are quiesced, mirroring the core's pool-replacement discipline.
type FS struct {
	root   string
	ignore *IgnoreSet

	mu       sync.RWMutex
	executor *pool.Pool
	watcher  *watcher
}

// New creates a virtual filesystem rooted at buildRoot with the given
// ignore patterns.
//
// The build root must exist and be a directory; anything else is a fatal
// environment failure surfaced to the caller. An empty pattern list is
// valid and ignores nothing.
func New(buildRoot string, ignorePatterns []string) (*FS, error) {
	info, err := os.Stat(buildRoot)
	if err != nil {
		return nil, fmt.Errorf("build root %s: %w", buildRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("build root %s: not a directory", buildRoot)
	}

	ignore, err := NewIgnoreSet(ignorePatterns)
	if err != nil {
		return nil, fmt.Errorf("compile ignore patterns: %w", err)
	}

	return &FS{
		root:     buildRoot,
		ignore:   ignore,
		executor: pool.New("vfs-", 0),
	}, nil
}

// Root returns the build root path.
func (f *FS) Root() string {
	return f.root
}

// Ignored reports whether the relative, slash-separated path is excluded by
// the ignore patterns.
func (f *FS) Ignored(rel string) bool {
	return f.ignore.Match(rel)
}

// Executor returns the current internal executor. The returned pool must
// not be retained across a Reinit; callers use it for the duration of one
// operation only.
func (f *FS) Executor() *pool.Pool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.executor
}

// Reinit rebuilds the FS's OS-level resources after a process fork.
//
// The old executor's workers and the old watcher's kernel handles do not
// exist in the forked image; both are discarded and recreated. Invoked by
// the core before its own pool replacement, so VFS operations dispatched
// onto the new engine pool always find a working executor.
func (f *FS) Reinit() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.executor = pool.New("vfs-", 0)

	if f.watcher != nil {
		dirs := f.watcher.dirs()
		// The pre-fork kernel handle is dead; closing is best-effort.
		f.watcher.close()
		w, err := newWatcher(f.ignore, f.root, dirs)
		if err != nil {
			return fmt.Errorf("reinit watcher: %w", err)
		}
		f.watcher = w
	}

	return nil
}

// Scan walks dir (relative to the build root, "" for the root itself) and
// returns the relative slash-separated paths of all non-ignored regular
// files, sorted for deterministic snapshots.
func (f *FS) Scan(ctx context.Context, dir string) ([]string, error) {
	base := filepath.Join(f.root, filepath.FromSlash(dir))

	var files []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if f.ignore.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

// ReadFile returns the contents of one non-ignored file.
func (f *FS) ReadFile(rel string) ([]byte, error) {
	if f.ignore.Match(rel) {
		return nil, fmt.Errorf("read %s: path is ignored", rel)
	}
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

// ReadFiles reads many files in parallel on the FS's internal executor.
// Returns rel -> contents for every requested path, or the first error.
func (f *FS) ReadFiles(ctx context.Context, rels []string) (map[string][]byte, error) {
	exec := f.Executor()

	var outMu sync.Mutex
	out := make(map[string][]byte, len(rels))

	g, ctx := errgroup.WithContext(ctx)
	for _, rel := range rels {
		g.Go(func() error {
			done := make(chan error, 1)
			if err := exec.Submit(ctx, func() {
				data, err := f.ReadFile(rel)
				if err != nil {
					done <- err
					return
				}
				outMu.Lock()
				out[rel] = data
				outMu.Unlock()
				done <- nil
			}); err != nil {
				return err
			}
			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
