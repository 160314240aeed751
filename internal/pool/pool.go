// Package pool provides the resource pool: the worker facility that graph
// node computations are dispatched onto.
//
// A pool is cheap to construct and immediately usable. The core replaces its
// pool wholesale after a process fork - worker state never survives the fork
// boundary - so nothing here assumes a pool lives for the whole process.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Pool executes submitted work with bounded parallelism.
//
// Thread-safety model:
//   - Submit/TrySubmit: safe from any goroutine
//   - Close: safe from any goroutine, idempotent
//
// Submission does not fail in steady state; TrySubmit reports saturation and
// Submit only fails if the context is cancelled or the pool is closed.
type Pool struct {
	name string
	size int64
	sem  *semaphore.Weighted

	mu       sync.Mutex
	closed   bool
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// New creates a named pool with the given worker parallelism.
//
// The name is a diagnostic prefix; a short random suffix is appended so that
// a replaced pool is distinguishable from its predecessor in logs. size <= 0
// defaults to the number of CPUs.
func New(name string, size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{
		name: fmt.Sprintf("%s%s", name, uuid.NewString()[:8]),
		size: int64(size),
		sem:  semaphore.NewWeighted(int64(size)),
	}
	slog.Debug("pool created", "name", p.name, "size", size)
	return p
}

// Name returns the pool's diagnostic name.
func (p *Pool) Name() string {
	return p.name
}

// Size returns the pool's worker parallelism.
func (p *Pool) Size() int {
	return int(p.size)
}

// InFlight returns the number of currently executing work items.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Submit dispatches fn for execution, blocking until a worker slot is free
// or ctx is cancelled. fn runs on its own goroutine; Submit returns once the
// work is accepted, not when it completes.
func (p *Pool) Submit(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("pool %s: acquire worker: %w", p.name, err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return fmt.Errorf("pool %s: closed", p.name)
	}
	p.wg.Add(1)
	p.mu.Unlock()

	p.inFlight.Add(1)
	go func() {
		defer func() {
			p.inFlight.Add(-1)
			p.sem.Release(1)
			p.wg.Done()
		}()
		fn()
	}()
	return nil
}

// TrySubmit dispatches fn if a worker slot is immediately available.
// Returns false if the pool is saturated or closed.
func (p *Pool) TrySubmit(fn func()) bool {
	if !p.sem.TryAcquire(1) {
		return false
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return false
	}
	p.wg.Add(1)
	p.mu.Unlock()

	p.inFlight.Add(1)
	go func() {
		defer func() {
			p.inFlight.Add(-1)
			p.sem.Release(1)
			p.wg.Done()
		}()
		fn()
	}()
	return true
}

// Close rejects further submissions and waits for in-flight work to drain.
// Idempotent. A pool abandoned after a fork is simply dropped without Close:
// its workers do not exist in the child image.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	slog.Debug("pool closed", "name", p.name)
}
