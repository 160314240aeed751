package core

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/loom/internal/pool"
	"github.com/loomworks/loom/internal/registry"
)

// newTestCore builds a Core over temp directories with empty registries.
func newTestCore(t *testing.T) *Core {
	t.Helper()

	tasks := registry.NewTasks()
	tasks.Seal()
	types := registry.NewTypes()
	types.Seal()

	c, err := New(tasks, types, t.TempDir(), nil, t.TempDir(), Options{PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_ValidEnvironment(t *testing.T) {
	c := newTestCore(t)

	g := c.Pool()
	assert.NotNil(t, g.Pool())
	g.Release()

	assert.NotNil(t, c.Graph)
	assert.NotNil(t, c.Snapshots)
	assert.NotNil(t, c.VFS)
}

func TestNew_UncreatableWorkDir(t *testing.T) {
	blocked := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("not a dir"), 0o644))

	tasks := registry.NewTasks()
	types := registry.NewTypes()

	_, err := New(tasks, types, t.TempDir(), nil, filepath.Join(blocked, "work"), Options{})
	require.Error(t, err)
	assert.True(t, IsSnapshotInitError(err), "expected SNAPSHOT_INIT, got %v", err)
	assert.False(t, IsVFSInitError(err))
}

func TestNew_MissingBuildRoot(t *testing.T) {
	tasks := registry.NewTasks()
	types := registry.NewTypes()

	_, err := New(tasks, types, filepath.Join(t.TempDir(), "nope"), nil, t.TempDir(), Options{})
	require.Error(t, err)
	assert.True(t, IsVFSInitError(err))
	assert.False(t, IsSnapshotInitError(err))
}

func TestNew_EmptyIgnoreList(t *testing.T) {
	tasks := registry.NewTasks()
	types := registry.NewTypes()

	c, err := New(tasks, types, t.TempDir(), []string{}, t.TempDir(), Options{})
	require.NoError(t, err)
	defer c.Close()

	g := c.Pool()
	defer g.Release()
	assert.NotNil(t, g.Pool())
}

func TestPool_ConcurrentReadersSameInstance(t *testing.T) {
	c := newTestCore(t)
	const readers = 32

	var wg sync.WaitGroup
	instances := make([]*pool.Pool, readers)
	start := make(chan struct{})
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			g := c.Pool()
			defer g.Release()
			instances[i] = g.Pool()
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 1; i < readers; i++ {
		assert.Same(t, instances[0], instances[i],
			"all readers must observe the same pool instance")
	}
}

func TestPool_ReadersDoNotBlockEachOther(t *testing.T) {
	c := newTestCore(t)

	// Hold one guard while acquiring another on the same goroutine. If
	// readers blocked each other this would deadlock.
	g1 := c.Pool()
	g2 := c.Pool()
	assert.Same(t, g1.Pool(), g2.Pool())
	g2.Release()
	g1.Release()
}

func TestWithPool_Dispatch(t *testing.T) {
	c := newTestCore(t)

	var ran atomic.Bool
	done := make(chan struct{})
	err := c.WithPool(func(p *pool.Pool) error {
		return p.Submit(context.Background(), func() {
			ran.Store(true)
			close(done)
		})
	})
	require.NoError(t, err)
	<-done
	assert.True(t, ran.Load())
}
