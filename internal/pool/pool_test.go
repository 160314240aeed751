package pool

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_NamePrefixAndUniqueness(t *testing.T) {
	a := New("engine-", 2)
	b := New("engine-", 2)

	assert.True(t, strings.HasPrefix(a.Name(), "engine-"))
	assert.NotEqual(t, a.Name(), b.Name(), "replaced pools must be distinguishable")
}

func TestPool_DefaultSize(t *testing.T) {
	p := New("engine-", 0)
	assert.Greater(t, p.Size(), 0)
}

func TestPool_SubmitRunsWork(t *testing.T) {
	p := New("engine-", 4)
	defer p.Close()

	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := p.Submit(context.Background(), func() {
			defer wg.Done()
			ran.Add(1)
		})
		require.NoError(t, err)
	}
	wg.Wait()
	assert.Equal(t, int64(20), ran.Load())
}

func TestPool_BoundedParallelism(t *testing.T) {
	const size = 3
	p := New("engine-", size)
	defer p.Close()

	var current, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		err := p.Submit(context.Background(), func() {
			defer wg.Done()
			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			current.Add(-1)
		})
		require.NoError(t, err)
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int64(size))
}

func TestPool_SubmitHonorsContext(t *testing.T) {
	p := New("engine-", 1)
	defer p.Close()

	block := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func() {})
	require.Error(t, err, "saturated pool with cancelled context must fail submission")

	close(block)
}

func TestPool_TrySubmitSaturation(t *testing.T) {
	p := New("engine-", 1)
	defer p.Close()

	block := make(chan struct{})
	ok := p.TrySubmit(func() { <-block })
	require.True(t, ok)

	assert.False(t, p.TrySubmit(func() {}), "saturated pool must reject TrySubmit")
	close(block)
}

func TestPool_CloseRejectsAndDrains(t *testing.T) {
	p := New("engine-", 2)

	var done atomic.Bool
	require.NoError(t, p.Submit(context.Background(), func() {
		time.Sleep(10 * time.Millisecond)
		done.Store(true)
	}))

	p.Close()
	assert.True(t, done.Load(), "Close must wait for in-flight work")

	err := p.Submit(context.Background(), func() {})
	require.Error(t, err)
	assert.False(t, p.TrySubmit(func() {}))

	// Idempotent.
	p.Close()
}

func TestPool_InFlight(t *testing.T) {
	p := New("engine-", 2)
	defer p.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() {
		close(started)
		<-block
	}))

	<-started
	assert.Equal(t, 1, p.InFlight())
	close(block)
}
