package xsync

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCache_GetOrCompute(t *testing.T) {
	c := NewCache[string, int](4)
	calls := 0

	v, err := c.GetOrCompute("a", func() (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = c.GetOrCompute("a", func() (int, error) {
		calls++
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	c := NewCache[string, int](4)
	calls := 0

	_, err := c.GetOrCompute("a", func() (int, error) {
		calls++
		return 0, errors.New("boom")
	})
	require.EqualError(t, err, "boom")

	v, err := c.GetOrCompute("a", func() (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache[int, int](2)
	compute := func(v int) func() (int, error) {
		return func() (int, error) { return v, nil }
	}

	_, err := c.GetOrCompute(1, compute(1))
	require.NoError(t, err)
	_, err = c.GetOrCompute(2, compute(2))
	require.NoError(t, err)

	// Touch 1 so 2 becomes the eviction victim.
	_, err = c.GetOrCompute(1, compute(-1))
	require.NoError(t, err)

	_, err = c.GetOrCompute(3, compute(3))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	// The touch protected 1 from the eviction that dropped 2.
	v, err := c.GetOrCompute(1, func() (int, error) {
		t.Fatal("entry 1 should still be cached")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	recomputed := false
	v, err = c.GetOrCompute(2, func() (int, error) {
		recomputed = true
		return 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.True(t, recomputed)
}

func TestCache_ConcurrentMissesShareOneComputation(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewCache[string, int](4)
	var calls atomic.Int32
	release := make(chan struct{})

	const goroutines = 16
	var wg sync.WaitGroup
	results := make([]int, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute("key", func() (int, error) {
				calls.Add(1)
				<-release
				return 99, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, 99, v)
	}
}

func TestNewCache_PanicsOnNonPositiveCapacity(t *testing.T) {
	assert.Panics(t, func() { NewCache[int, int](0) })
}
