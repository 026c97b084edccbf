package threadpool

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/corvusware/objectpool/pool"
)

// AutoScaleThreadPool is the auto-scaling counterpart of ThreadPool: worker
// count grows in batches on contention and shrinks back down when idle, and
// workers are recycled on a TTL the same way auto-scaled pool entries are.
// When every worker is busy, tasks park in a bounded intake queue instead of
// blocking the caller on worker creation; a worker drains the queue before
// returning itself to the pool.
type AutoScaleThreadPool struct {
	objectPool *pool.AutoScalePool[*worker]
	logger     *zap.Logger
	wg         sync.WaitGroup
	queue      chan func()
}

// NewAutoScale builds an AutoScaleThreadPool with minSize always-running
// workers, room to grow lazily (in scaleFactor-sized batches) up to maxSize,
// and a bounded intake queue of queueCapacity tasks for when every worker is
// busy.
func NewAutoScale(minSize, maxSize, queueCapacity int, opts ...AutoScaleOption) (*AutoScaleThreadPool, error) {
	o := resolveAutoScaleOptions(opts)

	tp := &AutoScaleThreadPool{
		logger: o.logger,
		queue:  make(chan func(), queueCapacity),
	}

	builder := pool.NewAutoScaleConfigBuilder[*worker]().
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
	if o.checkInterval > 0 {
		builder.SetCheckInterval(o.checkInterval)
	}
	if o.objectTTL > 0 {
		builder.SetObjectTTL(o.objectTTL)
	}
	if o.maxIdleTime > 0 {
		builder.SetMaxIdleTime(o.maxIdleTime)
	}
	if o.scaleFactor > 0 {
		builder.SetScaleFactor(o.scaleFactor)
	}

	cfg, err := builder.Build()
	if err != nil {
		return nil, err
	}

	objectPool, err := pool.NewAutoScalePool(cfg)
	if err != nil {
		return nil, err
	}
	tp.objectPool = objectPool
	return tp, nil
}

// Submit acquires a worker if one is free; otherwise it parks task in the
// intake queue, blocking until room frees up, ctx ends, or the queue is
// drained by a worker.
func (tp *AutoScaleThreadPool) Submit(ctx context.Context, task func()) error {
	if task == nil {
		return ErrNilTask
	}

	e, ok, err := tp.objectPool.TryAcquire()
	if err != nil {
		return err
	}
	if ok {
		tp.dispatch(e, task)
		return nil
	}

	select {
	case tp.queue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit is the non-blocking variant: it fails if every worker is busy and
// the intake queue is full.
func (tp *AutoScaleThreadPool) TrySubmit(task func()) (bool, error) {
	if task == nil {
		return false, ErrNilTask
	}

	e, ok, err := tp.objectPool.TryAcquire()
	if err != nil {
		return false, err
	}
	if ok {
		tp.dispatch(e, task)
		return true, nil
	}

	select {
	case tp.queue <- task:
		return true, nil
	default:
		return false, nil
	}
}

// dispatch runs task on e's worker, then keeps pulling queued tasks onto the
// same worker until the queue is empty before releasing e back to the pool.
func (tp *AutoScaleThreadPool) dispatch(e pool.Entry[*worker], task func()) {
	w := e.Object()
	go func() {
		for {
			w.run(wrapTask(tp.logger, task))

			select {
			case next := <-tp.queue:
				task = next
				continue
			default:
			}
			break
		}
		if err := tp.objectPool.Release(e); err != nil {
			tp.logger.Warn("worker release failed", zap.Error(err))
		}
	}()
}

// Size returns the number of workers currently resident in the pool.
func (tp *AutoScaleThreadPool) Size() int { return tp.objectPool.Size() }

// Close closes the underlying pool and waits for every worker goroutine to
// exit before returning. Tasks still sitting in the intake queue are
// discarded.
func (tp *AutoScaleThreadPool) Close() error {
	err := tp.objectPool.Close()
	tp.wg.Wait()
	return err
}
