// Package threadpool layers a fixed-shape worker-pool façade (C6) and its
// auto-scaling counterpart (C7) on top of package pool, the same way a
// connection pool or goroutine-worker pool is usually built on top of a
// generic object pool: the pooled payload is itself a worker, and
// submitting a task is "acquire a worker, hand it the task, release the
// worker once the task completes."
package threadpool

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/corvusware/objectpool/pool"
)

// ThreadPool runs submitted tasks on a bounded set of long-lived worker
// goroutines borrowed from an underlying object pool.
type ThreadPool struct {
	objectPool *pool.Pool[*worker]
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// New builds a ThreadPool with minSize always-running workers and room to
// grow lazily up to maxSize.
func New(minSize, maxSize int, opts ...Option) (*ThreadPool, error) {
	o := resolveOptions(opts)

	tp := &ThreadPool{logger: o.logger}

	builder := pool.NewConfigBuilder[*worker]().
		SetMinSize(minSize).
		SetMaxSize(maxSize).
		SetObjectFactory(func() (*worker, error) {
			tp.wg.Add(1)
			return newWorker(&tp.wg), nil
		}).
		SetOnClose(func(w *worker) { close(w.mailbox) })

	if o.loggerSet {
		builder = builder.SetLogger(o.logger)
	}
	if o.logLevelSet {
		builder = builder.SetLogLevel(o.logLevel)
	}

	cfg, err := builder.Build()
	if err != nil {
		return nil, err
	}

	objectPool, err := pool.NewPool(cfg)
	if err != nil {
		return nil, err
	}
	tp.objectPool = objectPool
	return tp, nil
}

// Submit acquires a worker (blocking until one is free, ctx is done, or the
// pool is closed) and hands it task. Submit returns as soon as the task has
// been handed off; it does not wait for the task to finish running.
func (tp *ThreadPool) Submit(ctx context.Context, task func()) error {
	if task == nil {
		return ErrNilTask
	}
	e, err := tp.objectPool.Acquire(ctx)
	if err != nil {
		return err
	}
	tp.dispatch(e, task)
	return nil
}

// TrySubmit is the non-blocking variant: it returns false if every worker is
// currently busy.
func (tp *ThreadPool) TrySubmit(task func()) (bool, error) {
	if task == nil {
		return false, ErrNilTask
	}
	e, ok, err := tp.objectPool.TryAcquire()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	tp.dispatch(e, task)
	return true, nil
}

// dispatch hands task to e's worker and, once it completes, releases e back
// to the pool. The release happens from a dedicated goroutine so Submit
// itself never blocks on task execution.
func (tp *ThreadPool) dispatch(e pool.Entry[*worker], task func()) {
	w := e.Object()
	wrapped := wrapTask(tp.logger, task)
	go func() {
		w.run(wrapped)
		if err := tp.objectPool.Release(e); err != nil {
			tp.logger.Warn("worker release failed", zap.Error(err))
		}
	}()
}

// Size returns the number of workers currently resident in the pool.
func (tp *ThreadPool) Size() int { return tp.objectPool.Size() }

// Close closes the underlying pool, which closes every worker's mailbox, and
// waits for every worker goroutine to exit before returning.
func (tp *ThreadPool) Close() error {
	err := tp.objectPool.Close()
	tp.wg.Wait()
	return err
}
