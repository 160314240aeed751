package core

import (
	"log/slog"
	"sync"

	"github.com/loomworks/loom/internal/graph"
	"github.com/loomworks/loom/internal/pool"
	"github.com/loomworks/loom/internal/registry"
	"github.com/loomworks/loom/internal/snapshot"
	"github.com/loomworks/loom/internal/vfs"
)

// enginePoolPrefix names engine pools for diagnostics; a random suffix per
// instance makes pre- and post-fork pools distinguishable in logs.
const enginePoolPrefix = "engine-"

// Core is the engine state shared by the scheduler and the Contexts of all
// running node computations.
//
// Exactly one Core exists per running engine instance. Graph, Tasks, Types,
// Snapshots, and VFS are fixed at construction; only the pool is ever
// replaced, under the write lock, by PostFork.
type Core struct {
	Graph     *graph.Graph
	Tasks     *registry.Tasks
	Types     *registry.Types
	Snapshots *snapshot.Store
	VFS       *vfs.FS

	poolMu   sync.RWMutex
	pool     *pool.Pool
	poolSize int
}

// Options tunes Core construction.
type Options struct {
	// PoolSize is the engine pool's worker parallelism; <= 0 means one
	// worker per CPU.
	PoolSize int
}

// New constructs a Core: snapshot store rooted at workDir, virtual
// filesystem rooted at buildRoot with the given ignore patterns, and a
// fresh engine pool.
//
// Construction failures are fatal to engine startup - a Core missing its
// snapshot store or VFS has no meaningful degraded mode - and are returned
// as *InitError with a code identifying the failed subsystem.
func New(
	tasks *registry.Tasks,
	types *registry.Types,
	buildRoot string,
	ignorePatterns []string,
	workDir string,
	opts Options,
) (*Core, error) {
	snapshots, err := snapshot.Open(workDir)
	if err != nil {
		return nil, &InitError{Code: ErrCodeSnapshotInit, Path: workDir, Err: err}
	}

	fs, err := vfs.New(buildRoot, ignorePatterns)
	if err != nil {
		snapshots.Close()
		return nil, &InitError{Code: ErrCodeVFSInit, Path: buildRoot, Err: err}
	}

	c := &Core{
		Graph:     graph.New(),
		Tasks:     tasks,
		Types:     types,
		Snapshots: snapshots,
		VFS:       fs,
		pool:      pool.New(enginePoolPrefix, opts.PoolSize),
		poolSize:  opts.PoolSize,
	}

	slog.Info("core initialized",
		"build_root", buildRoot,
		"work_dir", workDir,
		"ignore_patterns", len(ignorePatterns),
		"pool", c.pool.Name(),
	)

	return c, nil
}

// PoolGuard is a read-locked handle to the current engine pool.
//
// Any number of guards may be held concurrently; acquisition only blocks on
// an in-progress PostFork replacement. The guard must be Released at the
// end of the operation that acquired it and must not be retained across a
// point that could span a fork - after a replacement the pool it references
// no longer executes anything.
type PoolGuard struct {
	p    *pool.Pool
	core *Core
}

// Pool returns the guarded pool instance.
func (g PoolGuard) Pool() *pool.Pool {
	return g.p
}

// Release drops the read lock. Must be called exactly once per guard.
func (g PoolGuard) Release() {
	g.core.poolMu.RUnlock()
}

// Pool acquires a read guard on the current engine pool.
// Never fails; see PoolGuard for the retention rules.
func (c *Core) Pool() PoolGuard {
	c.poolMu.RLock()
	return PoolGuard{p: c.pool, core: c}
}

// WithPool runs fn with the current pool under a read guard, handling guard
// release. This is the ordinary dispatch path: the guard's scope is exactly
// one call, so it can never be held across a fork.
func (c *Core) WithPool(fn func(p *pool.Pool) error) error {
	g := c.Pool()
	defer g.Release()
	return fn(g.p)
}

// PostFork reinitializes the Core in a freshly forked process image.
//
// Must be invoked exactly once, immediately after the fork, before any new
// computation is scheduled. In order:
//  1. the VFS rebuilds its own OS-level resources (executor, watcher);
//  2. the engine pool is discarded and rebuilt under the write lock.
//
// Worker threads do not carry over a fork - the child sees only the forking
// thread - so any pre-fork pool handle is silently broken: work enqueued to
// it would never run. The write lock waits out in-flight read guards, and
// readers arriving during the swap block until the new pool is installed;
// when PostFork returns, every subsequent guard sees the new pool.
func (c *Core) PostFork() error {
	if err := c.VFS.Reinit(); err != nil {
		return &PostForkError{Stage: "vfs", Err: err}
	}

	c.poolMu.Lock()
	old := c.pool.Name()
	c.pool = pool.New(enginePoolPrefix, c.poolSize)
	fresh := c.pool.Name()
	c.poolMu.Unlock()

	slog.Info("post-fork pool replaced", "old", old, "new", fresh)
	return nil
}

// Close releases the Core's resources. Not part of the fork protocol - this
// is ordinary shutdown for the owning engine instance.
func (c *Core) Close() error {
	c.poolMu.Lock()
	c.pool.Close()
	c.poolMu.Unlock()

	c.VFS.Close()
	return c.Snapshots.Close()
}
