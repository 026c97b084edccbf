package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	id    int32
	stale atomic.Bool
}

func widgetFactory(counter *int32) func() (*widget, error) {
	return func() (*widget, error) {
		id := atomic.AddInt32(counter, 1)
		return &widget{id: id}, nil
	}
}

func newTestAutoScalePool(t *testing.T, opts func(*AutoScaleConfigBuilder[*widget]) *AutoScaleConfigBuilder[*widget]) (*AutoScalePool[*widget], *int32) {
	t.Helper()
	var counter int32
	builder := NewAutoScaleConfigBuilder[*widget]().
		SetMinSize(1).
		SetMaxSize(20).
		SetObjectFactory(widgetFactory(&counter)).
		SetCheckInterval(20 * time.Millisecond).
		SetMaxIdleTime(50 * time.Millisecond).
		SetObjectTTL(time.Hour)

	if opts != nil {
		builder = opts(builder)
	}

	cfg, err := builder.Build()
	require.NoError(t, err)

	ap, err := NewAutoScalePool(cfg)
	require.NoError(t, err)
	return ap, &counter
}

func TestAutoScalePool_ScalesOutOnMiss(t *testing.T) {
	ap, counter := newTestAutoScalePool(t, func(b *AutoScaleConfigBuilder[*widget]) *AutoScaleConfigBuilder[*widget] {
		return b.SetMinSize(0).SetScaleFactor(4)
	})
	defer ap.Close()

	_, err := ap.Acquire(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(counter) >= 4
	}, time.Second, 5*time.Millisecond, "scale-out batch should create additional Available entries in the background")
}

// TestAutoScalePool_ScaleOutDoesNotLeakPermits drives several scale-out
// batches to completion, lets the idle sweep scale each one back in, and then
// checks the pool can still be grown all the way to maxSize afterward. A
// scale-out path that spends a semaphore permit per batch member without a
// matching release would leave fewer and fewer permits available each round,
// and the final acquire loop below would block forever instead of draining.
func TestAutoScalePool_ScaleOutDoesNotLeakPermits(t *testing.T) {
	ap, _ := newTestAutoScalePool(t, func(b *AutoScaleConfigBuilder[*widget]) *AutoScaleConfigBuilder[*widget] {
		return b.SetMinSize(0).SetMaxSize(6).SetScaleFactor(3).
			SetMaxIdleTime(10 * time.Millisecond).SetCheckInterval(10 * time.Millisecond)
	})
	defer ap.Close()

	for i := 0; i < 4; i++ {
		e, err := ap.Acquire(context.Background())
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return ap.Size() > 1
		}, time.Second, 5*time.Millisecond, "scale-out batch should grow the pool past minSize")

		require.NoError(t, ap.Release(e))

		require.Eventually(t, func() bool {
			return ap.Size() <= 1
		}, time.Second, 5*time.Millisecond, "idle scale-in should shrink the batch-grown entries back down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	entries := make([]Entry[*widget], 0, ap.config.maxSize)
	for i := 0; i < ap.config.maxSize; i++ {
		e, err := ap.Acquire(ctx)
		require.NoError(t, err, "a leaked permit from an earlier scale-out batch would block this Acquire forever")
		entries = append(entries, e)
	}

	for _, e := range entries {
		require.NoError(t, ap.Release(e))
	}
}

func TestAutoScalePool_ScaleFactorOneDisablesBatching(t *testing.T) {
	ap, counter := newTestAutoScalePool(t, func(b *AutoScaleConfigBuilder[*widget]) *AutoScaleConfigBuilder[*widget] {
		return b.SetScaleFactor(1)
	})
	defer ap.Close()

	_, err := ap.Acquire(context.Background())
	require.NoError(t, err)
	_, err = ap.Acquire(context.Background())
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(counter), "prewarmed entry plus the single on-miss create, nothing more")
}

func TestAutoScalePool_ConcurrentScaleOutTriggersDoNotPanic(t *testing.T) {
	ap, _ := newTestAutoScalePool(t, func(b *AutoScaleConfigBuilder[*widget]) *AutoScaleConfigBuilder[*widget] {
		return b.SetScaleFactor(8)
	})
	defer ap.Close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = ap.TryAcquire()
			ap.triggerScaleOut()
		}()
	}
	wg.Wait()

	assert.True(t, true, "concurrent triggers must not panic or deadlock; CAS already guarantees at most one batch")
}

func TestAutoScalePool_IdleScaleIn(t *testing.T) {
	ap, _ := newTestAutoScalePool(t, func(b *AutoScaleConfigBuilder[*widget]) *AutoScaleConfigBuilder[*widget] {
		return b.SetMinSize(1).SetMaxIdleTime(10 * time.Millisecond).SetCheckInterval(10 * time.Millisecond)
	})
	defer ap.Close()

	entries := make([]Entry[*widget], 0, 5)
	for i := 0; i < 5; i++ {
		e, err := ap.Acquire(context.Background())
		require.NoError(t, err)
		entries = append(entries, e)
	}
	for _, e := range entries {
		require.NoError(t, ap.Release(e))
	}

	require.Eventually(t, func() bool {
		return ap.Size() <= 1
	}, time.Second, 10*time.Millisecond, "idle entries above minSize should be scaled back in")
}

func TestAutoScalePool_NeverScalesBelowMinSize(t *testing.T) {
	ap, _ := newTestAutoScalePool(t, func(b *AutoScaleConfigBuilder[*widget]) *AutoScaleConfigBuilder[*widget] {
		return b.SetMinSize(2).SetMaxIdleTime(10 * time.Millisecond).SetCheckInterval(10 * time.Millisecond)
	})
	defer ap.Close()

	time.Sleep(100 * time.Millisecond)
	assert.GreaterOrEqual(t, ap.Size(), 2)
}

func TestAutoScalePool_TTLTriggersRefreshOnAcquiredEntry(t *testing.T) {
	ap, counter := newTestAutoScalePool(t, func(b *AutoScaleConfigBuilder[*widget]) *AutoScaleConfigBuilder[*widget] {
		return b.SetObjectTTL(10 * time.Millisecond).SetCheckInterval(10 * time.Millisecond)
	})
	defer ap.Close()

	e, err := ap.Acquire(context.Background())
	require.NoError(t, err)
	originalID := e.Object().id

	time.Sleep(40 * time.Millisecond)

	require.NoError(t, ap.Release(e))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(counter) > originalID
	}, time.Second, 5*time.Millisecond, "an expired Acquired entry should be refreshed on release")
}

func TestAutoScalePool_StaleCheckerTriggersRefresh(t *testing.T) {
	ap, counter := newTestAutoScalePool(t, func(b *AutoScaleConfigBuilder[*widget]) *AutoScaleConfigBuilder[*widget] {
		return b.SetObjectTTL(time.Hour).
			SetCheckInterval(10 * time.Millisecond).
			SetStaleChecker(func(w *widget) bool { return w.stale.Load() })
	})
	defer ap.Close()

	e, err := ap.Acquire(context.Background())
	require.NoError(t, err)
	e.Object().stale.Store(true)
	require.NoError(t, ap.Release(e))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(counter) > 1
	}, time.Second, 5*time.Millisecond, "a staleChecker-flagged Available entry should be refreshed by the sweep")
}

func TestAutoScalePool_RefreshFailureScalesEntryIn(t *testing.T) {
	var counter int32
	var fail atomic.Bool

	cfg, err := NewAutoScaleConfigBuilder[*widget]().
		SetMinSize(1).
		SetMaxSize(5).
		SetObjectTTL(10 * time.Millisecond).
		SetCheckInterval(10 * time.Millisecond).
		SetObjectFactory(func() (*widget, error) {
			if fail.Load() {
				return nil, assert.AnError
			}
			id := atomic.AddInt32(&counter, 1)
			return &widget{id: id}, nil
		}).
		Build()
	require.NoError(t, err)

	ap, err := NewAutoScalePool(cfg)
	require.NoError(t, err)
	defer ap.Close()

	e, err := ap.Acquire(context.Background())
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	fail.Store(true)
	require.NoError(t, ap.Release(e))

	require.Eventually(t, func() bool {
		return ap.Size() == 0
	}, time.Second, 5*time.Millisecond, "an entry whose refresh-on-release fails must be scaled in, not handed back out stale")

	fail.Store(false)
	_, err = ap.Acquire(context.Background())
	assert.NoError(t, err, "the permit owed by the failed entry must still be reclaimable")
}

func TestAutoScalePool_CloseJoinsSweepGoroutine(t *testing.T) {
	ap, _ := newTestAutoScalePool(t, nil)
	require.NoError(t, ap.Close())
}
