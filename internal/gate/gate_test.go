package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterPerIndexerSpacing(t *testing.T) {
	const gap = 30 * time.Millisecond
	l := NewLimiter(5*time.Millisecond, gap)
	ctx := context.Background()

	var stamps []time.Time
	for i := 0; i < 4; i++ {
		require.NoError(t, l.AcquireSlot(ctx, 1))
		stamps = append(stamps, time.Now())
	}

	for i := 1; i < len(stamps); i++ {
		spacing := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, spacing, gap-time.Millisecond,
			"calls %d and %d spaced %v, want at least %v", i-1, i, spacing, gap)
	}
}

func TestLimiterGlobalSpacing(t *testing.T) {
	const gap = 25 * time.Millisecond
	l := NewLimiter(gap, time.Millisecond)
	ctx := context.Background()

	require.NoError(t, l.AcquireSlot(ctx, 1))
	first := time.Now()
	// A different indexer is still subject to the global floor.
	require.NoError(t, l.AcquireSlot(ctx, 2))
	assert.GreaterOrEqual(t, time.Since(first), gap-time.Millisecond)
}

func TestLimiterConcurrentCallersNeverOverlap(t *testing.T) {
	const gap = 20 * time.Millisecond
	l := NewLimiter(2*time.Millisecond, gap)
	ctx := context.Background()

	var mu sync.Mutex
	var stamps []time.Time
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.AcquireSlot(ctx, 7))
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Dispatch times are already appended in completion order; with a
	// FIFO gate they must be pairwise separated by the indexer gap.
	for i := 1; i < len(stamps); i++ {
		spacing := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, spacing, gap-2*time.Millisecond)
	}
}

func TestLimiterContextCancel(t *testing.T) {
	l := NewLimiter(time.Millisecond, time.Hour)
	ctx := context.Background()

	require.NoError(t, l.AcquireSlot(ctx, 1))

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := l.AcquireSlot(cancelCtx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSearchQueueSerializesAndSpacesStarts(t *testing.T) {
	const gap = 25 * time.Millisecond
	q := NewSearchQueue(gap)
	ctx := context.Background()

	var running atomic.Int32
	var mu sync.Mutex
	var starts []time.Time

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Do(ctx, func(context.Context) error {
				assert.Equal(t, int32(1), running.Add(1), "two searches ran at once")
				mu.Lock()
				starts = append(starts, time.Now())
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), gap-2*time.Millisecond)
	}
}

func TestSearchQueuePropagatesError(t *testing.T) {
	q := NewSearchQueue(time.Millisecond)
	wantErr := assert.AnError
	err := q.Do(context.Background(), func(context.Context) error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}
