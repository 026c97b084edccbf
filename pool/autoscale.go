package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// AutoScalePool is C5: a bounded Pool (embedded) augmented with batched
// scale-out on cache misses, periodic scale-in of idle entries, and
// TTL/staleness-driven refresh.
//
// The availability queue (C3) is treated as a fast-path hint rather than a
// strict source of truth: an entry's Status under its own mutex is the
// ground truth, and every queue pop is re-validated against it. This lets
// the sweep transition an Available entry through Acquired (to get
// exclusive use of it for a refresh) without also having to pop-and-requeue
// its key; a stale queue entry just costs whoever pops it next a wasted
// attempt, handled the same way as any other miss.
type AutoScalePool[T any] struct {
	*Pool[T]

	config     *AutoScaleConfig[T]
	scalingOut atomic.Bool
	refreshSem *semaphore.Weighted
	sweepWG    sync.WaitGroup
}

// NewAutoScalePool constructs an AutoScalePool, prewarming config.minSize
// entries (via the embedded Pool) and starting the background sweep
// goroutine.
func NewAutoScalePool[T any](config *AutoScaleConfig[T]) (*AutoScalePool[T], error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	base, err := NewPool(config.Config)
	if err != nil {
		return nil, err
	}

	ap := &AutoScalePool[T]{
		Pool:       base,
		config:     config,
		refreshSem: semaphore.NewWeighted(defaultRefreshInflight),
	}

	ap.sweepWG.Add(1)
	go ap.sweepLoop()

	return ap, nil
}

// Acquire blocks until an entry is available, a new one is created, or ctx
// (or Close) ends the wait. A miss that required creating a new entry
// triggers a background scale-out batch (see triggerScaleOut).
func (ap *AutoScalePool[T]) Acquire(ctx context.Context) (Entry[T], error) {
	if ap.closed.Load() {
		return Entry[T]{}, ErrPoolClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	waitCtx, stop := mergeCancel(ctx, ap.ctx)
	defer stop()

	if err := ap.avail.acquirePermit(waitCtx); err != nil {
		if ap.closed.Load() {
			return Entry[T]{}, ErrPoolClosed
		}
		return Entry[T]{}, err
	}

	return ap.claimOrCreate()
}

// TryAcquire is the non-blocking variant.
func (ap *AutoScalePool[T]) TryAcquire() (Entry[T], bool, error) {
	if ap.closed.Load() {
		return Entry[T]{}, false, ErrPoolClosed
	}
	if !ap.avail.tryAcquirePermit() {
		return Entry[T]{}, false, nil
	}

	e, err := ap.claimOrCreate()
	if err != nil {
		return Entry[T]{}, false, err
	}
	return e, true, nil
}

func (ap *AutoScalePool[T]) claimOrCreate() (Entry[T], error) {
	if key, ok := ap.avail.popAvailable(); ok {
		if ent, found := ap.table.get(key); found {
			ent.mu.Lock()
			claimed := ent.transition(StatusAvailable, StatusAcquired)
			ent.mu.Unlock()
			if claimed {
				ap.stats.acquired.Add(1)
				return Entry[T]{inner: ent}, nil
			}
		}
	}

	ent, err := ap.createEntry(StatusAcquired)
	if err != nil {
		ap.avail.releasePermit()
		return Entry[T]{}, fmt.Errorf("%w: %w", ErrFactoryFailed, err)
	}
	ap.stats.created.Add(1)
	ap.stats.acquired.Add(1)

	ap.triggerScaleOut()
	return Entry[T]{inner: ent}, nil
}

// triggerScaleOut schedules a batch of scaleFactor-1 additional Available
// entries if none is already in flight. At most one batch runs at a time;
// additional miss events while a batch runs are silently dropped.
func (ap *AutoScalePool[T]) triggerScaleOut() {
	if ap.config.scaleFactor <= 1 {
		return
	}
	if !ap.scalingOut.CompareAndSwap(false, true) {
		return
	}
	go ap.runScaleOutBatch()
}

// runScaleOutBatch mints up to scaleFactor-1 additional Available entries the
// same way prewarm does: no semaphore permit is consumed, since these
// entries are handed out later through the normal Acquire path, which always
// takes its own permit before popping or creating. Taking a permit here too
// would leave that permit permanently unaccounted for once the entry is
// later scaled in while idle (trySweepScaleIn releases none, on the
// assumption the entry's permit was already returned by a prior Release).
// Each member instead bounds itself against maxSize under addMu via
// createEntryIfRoom, the same lock createEntry itself takes.
func (ap *AutoScalePool[T]) runScaleOutBatch() {
	defer ap.scalingOut.Store(false)

	var g errgroup.Group
	for i := 0; i < ap.config.scaleFactor-1; i++ {
		g.Go(func() error {
			ent, err := ap.createEntryIfRoom(StatusAvailable)
			if err != nil {
				ap.logger().Warn("scale-out batch member failed", zap.Error(err))
				return nil
			}
			if ent == nil {
				return nil
			}
			ap.avail.pushAvailable(ent.key)
			ap.stats.created.Add(1)
			return nil
		})
	}
	_ = g.Wait()
}

// Release returns an Acquired entry to Available, or, if the sweep flagged
// it PendingRefresh while it was checked out, performs (or schedules) the
// owed refresh before the entry becomes claimable again.
func (ap *AutoScalePool[T]) Release(e Entry[T]) error {
	ent := e.inner
	if ent == nil || ent.owner != ap.table {
		return ErrMisuse
	}
	if ap.closed.Load() {
		return nil
	}

	ent.mu.Lock()
	status := ent.status
	switch status {
	case StatusAcquired:
		ent.status = StatusAvailable
		ent.lastUsedTime = time.Now()
		ent.mu.Unlock()

		ap.avail.pushAvailable(ent.key)
		ap.avail.releasePermit()
		ap.stats.released.Add(1)
		return nil

	case StatusPendingRefresh:
		ent.mu.Unlock()
		ap.handoffRefresh(ent)
		return nil

	default:
		ent.mu.Unlock()
		return ErrMisuse
	}
}

// handoffRefresh runs the owed refresh on a bounded background goroutine,
// falling back to running it inline when the refresh executor is saturated.
func (ap *AutoScalePool[T]) handoffRefresh(ent *entry[T]) {
	if ap.refreshSem.TryAcquire(1) {
		go func() {
			defer ap.refreshSem.Release(1)
			ap.settleRefresh(ent)
		}()
		return
	}
	ap.settleRefresh(ent)
}

// settleRefresh builds a replacement payload for a PendingRefresh entry. On
// success the entry is swapped in place and returned to Available; on
// failure the entry is scaled in rather than handed back out stale.
func (ap *AutoScalePool[T]) settleRefresh(ent *entry[T]) {
	newObj, err := ap.config.objectFactory()
	if err != nil {
		ap.logger().Warn("refresh on release failed, scaling entry in",
			zap.Uint64("key", ent.key), zap.Error(err))
		ap.scaleInAfterFailedRefresh(ent)
		return
	}

	ap.swapEntryObject(ent, newObj)

	ent.mu.Lock()
	ent.status = StatusAvailable
	ent.lastUsedTime = time.Now()
	ent.mu.Unlock()

	ap.avail.pushAvailable(ent.key)
	ap.avail.releasePermit()
	ap.stats.released.Add(1)
}

// swapEntryObject replaces ent's payload with newObj and resets its creation
// time, closing the old payload outside the entry's lock so a user onClose
// hook can never reenter the pool while holding it.
func (ap *AutoScalePool[T]) swapEntryObject(ent *entry[T], newObj T) {
	ent.mu.Lock()
	old := ent.object
	ent.object = newObj
	ent.creationTime = time.Now()
	ent.mu.Unlock()

	if ap.config.onClose != nil {
		ap.config.onClose(old)
	}
}

// scaleInAfterFailedRefresh removes and closes an entry whose refresh-on-
// release attempt failed. The permit it held since acquisition is released
// here since this entry never returns to Available.
func (ap *AutoScalePool[T]) scaleInAfterFailedRefresh(ent *entry[T]) {
	ent.mu.Lock()
	ent.status = StatusClosed
	obj := ent.object
	ent.mu.Unlock()

	ap.table.remove(ent.key)
	if ap.config.onClose != nil {
		ap.config.onClose(obj)
	}
	ap.stats.closed.Add(1)
	ap.avail.releasePermit()
}

// checkStale isolates a panicking staleChecker, logging it and treating it
// as "not stale" per §7's propagation policy for user callbacks.
func (ap *AutoScalePool[T]) checkStale(obj T) (stale bool) {
	defer func() {
		if r := recover(); r != nil {
			ap.logger().Warn("staleChecker panicked", zap.Any("recover", r))
			stale = false
		}
	}()
	return ap.config.staleChecker(obj)
}

func (ap *AutoScalePool[T]) sweepLoop() {
	defer ap.sweepWG.Done()

	ticker := time.NewTicker(ap.config.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ap.ctx.Done():
			return
		case <-ticker.C:
			ap.sweepOnce()
		}
	}
}

func (ap *AutoScalePool[T]) sweepOnce() {
	now := time.Now()
	for _, key := range ap.table.snapshotKeys() {
		ent, found := ap.table.get(key)
		if !found {
			continue
		}
		ap.sweepEntry(ent, now)
	}
}

func (ap *AutoScalePool[T]) sweepEntry(ent *entry[T], now time.Time) {
	ent.mu.Lock()
	status := ent.status
	idle := now.Sub(ent.lastUsedTime)
	age := now.Sub(ent.creationTime)
	obj := ent.object
	ent.mu.Unlock()

	if status == StatusAvailable && idle >= ap.config.maxIdleTime && ap.table.size() > ap.config.minSize {
		ap.trySweepScaleIn(ent)
		return
	}

	if age < ap.config.objectTTL && !ap.checkStale(obj) {
		return
	}

	switch status {
	case StatusAvailable:
		ap.trySweepRefresh(ent)
	case StatusAcquired:
		ent.mu.Lock()
		ent.transition(StatusAcquired, StatusPendingRefresh)
		ent.mu.Unlock()
	}
}

// trySweepScaleIn removes and closes an Available entry found idle past
// maxIdleTime. No permit is released: an Available entry either was never
// backed by a permit in the first place (prewarm, scale-out) or already
// returned its permit to the semaphore the last time it was Released, so
// removing it here simply leaves that permit free for a future lazy create.
func (ap *AutoScalePool[T]) trySweepScaleIn(ent *entry[T]) {
	ent.mu.Lock()
	if ent.status != StatusAvailable {
		ent.mu.Unlock()
		return
	}
	ent.status = StatusClosed
	obj := ent.object
	ent.mu.Unlock()

	ap.table.remove(ent.key)
	if ap.config.onClose != nil {
		ap.config.onClose(obj)
	}
	ap.stats.closed.Add(1)
}

// trySweepRefresh claims an Available entry the way an acquirer would (so a
// concurrent Acquire cannot hand it out mid-refresh), builds a replacement
// payload, and returns it to Available either refreshed or, on factory
// failure, unchanged.
func (ap *AutoScalePool[T]) trySweepRefresh(ent *entry[T]) {
	ent.mu.Lock()
	claimed := ent.transition(StatusAvailable, StatusAcquired)
	ent.mu.Unlock()
	if !claimed {
		return
	}

	newObj, err := ap.config.objectFactory()
	if err != nil {
		ap.logger().Warn("sweep refresh failed, keeping existing entry",
			zap.Uint64("key", ent.key), zap.Error(err))
		ent.mu.Lock()
		ent.transition(StatusAcquired, StatusAvailable)
		ent.mu.Unlock()
		return
	}

	ap.swapEntryObject(ent, newObj)
	ent.mu.Lock()
	ent.transition(StatusAcquired, StatusAvailable)
	ent.mu.Unlock()
}

// Close closes the underlying Pool and waits for the sweep goroutine to
// exit before returning.
func (ap *AutoScalePool[T]) Close() error {
	err := ap.Pool.Close()
	ap.sweepWG.Wait()
	return err
}
