package threadpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadPool_SubmitRunsTask(t *testing.T) {
	tp, err := New(1, 2)
	require.NoError(t, err)
	defer tp.Close()

	var ran atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	err = tp.Submit(context.Background(), func() {
		defer wg.Done()
		ran.Store(true)
	})
	require.NoError(t, err)
	wg.Wait()

	assert.True(t, ran.Load())
}

func TestThreadPool_SubmitRejectsNilTask(t *testing.T) {
	tp, err := New(1, 1)
	require.NoError(t, err)
	defer tp.Close()

	assert.ErrorIs(t, tp.Submit(context.Background(), nil), ErrNilTask)
}

func TestThreadPool_TrySubmitFailsWhenSaturated(t *testing.T) {
	tp, err := New(0, 1)
	require.NoError(t, err)
	defer tp.Close()

	block := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	ok, err := tp.TrySubmit(func() {
		defer wg.Done()
		<-block
	})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = tp.TrySubmit(func() {})
	require.NoError(t, err)
	assert.False(t, ok, "the only worker is busy")

	close(block)
	wg.Wait()
}

func TestThreadPool_SubmitRunsManyTasksSequentiallyPerWorker(t *testing.T) {
	tp, err := New(1, 1)
	require.NoError(t, err)
	defer tp.Close()

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		n := i
		err := tp.Submit(context.Background(), func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.Len(t, order, 10)
}

func TestThreadPool_PanicInTaskDoesNotKillWorker(t *testing.T) {
	tp, err := New(1, 1)
	require.NoError(t, err)
	defer tp.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	err = tp.Submit(context.Background(), func() {
		defer wg.Done()
		panic("boom")
	})
	require.NoError(t, err)
	wg.Wait()

	var ran atomic.Bool
	wg.Add(1)
	err = tp.Submit(context.Background(), func() {
		defer wg.Done()
		ran.Store(true)
	})
	require.NoError(t, err)
	wg.Wait()

	assert.True(t, ran.Load(), "the worker must survive a panicking task and run the next one")
}

func TestThreadPool_CloseWaitsForWorkersToExit(t *testing.T) {
	tp, err := New(3, 3)
	require.NoError(t, err)
	require.NoError(t, tp.Close())
}

func TestThreadPool_SubmitRespectsContextCancellation(t *testing.T) {
	tp, err := New(0, 1)
	require.NoError(t, err)
	defer tp.Close()

	block := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, tp.Submit(context.Background(), func() {
		defer wg.Done()
		<-block
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = tp.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
	wg.Wait()
}
