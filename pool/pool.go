package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Pool is a bounded object pool (C4): it lazily manufactures up to
// config.maxSize payloads and hands them out through Acquire/TryAcquire,
// reclaiming them through Release.
type Pool[T any] struct {
	config *Config[T]
	table  *table[T]
	avail  *availability
	stats  *poolStats

	// addMu serializes factory-and-insert so the semaphore's permit budget
	// and the table's actual size never diverge, per §5's "add lock."
	addMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// NewPool constructs a Pool from config, prewarming config.minSize entries
// eagerly as Available before returning.
func NewPool[T any](config *Config[T]) (*Pool[T], error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	p := &Pool[T]{
		config: config,
		table:  newTable[T](),
		avail:  newAvailability(config.maxSize),
		stats:  &poolStats{},
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())

	if err := p.prewarm(); err != nil {
		p.cancel()
		return nil, err
	}

	return p, nil
}

func (p *Pool[T]) logger() *zap.Logger { return p.config.logger }

// prewarm creates config.minSize entries and pushes them Available without
// consuming semaphore permits, since an Available entry and an unused permit
// represent the same claimable slot.
func (p *Pool[T]) prewarm() error {
	for i := 0; i < p.config.minSize; i++ {
		ent, err := p.createEntry(StatusAvailable)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFactoryFailed, err)
		}
		p.avail.pushAvailable(ent.key)
		p.stats.created.Add(1)
	}
	return nil
}

// createEntry mints a key, invokes the factory, and inserts the resulting
// entry into the table under addMu, so concurrent lazy-create paths can never
// push the resident count past what the semaphore already budgeted for.
func (p *Pool[T]) createEntry(status Status) (*entry[T], error) {
	p.addMu.Lock()
	defer p.addMu.Unlock()
	return p.newEntryLocked(status)
}

// createEntryIfRoom is createEntry's semaphore-free counterpart: it mints an
// entry the same way prewarm does, but only if the table has not already
// reached maxSize, checked and acted on atomically under addMu. Callers that
// grow the pool outside of the Acquire/Release permit accounting (background
// scale-out) use this instead of pairing createEntry with a permit that has
// nothing to be released against later. A nil, nil return means the table
// was already at maxSize; no entry was created.
func (p *Pool[T]) createEntryIfRoom(status Status) (*entry[T], error) {
	p.addMu.Lock()
	defer p.addMu.Unlock()

	if p.table.size() >= p.config.maxSize {
		return nil, nil
	}
	return p.newEntryLocked(status)
}

// newEntryLocked mints a key, invokes the factory, and inserts the resulting
// entry into the table. Callers must hold addMu.
func (p *Pool[T]) newEntryLocked(status Status) (*entry[T], error) {
	obj, err := p.config.objectFactory()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ent := &entry[T]{
		key:          p.table.mintKey(),
		object:       obj,
		status:       status,
		creationTime: now,
		lastUsedTime: now,
		owner:        p.table,
	}
	p.table.insert(ent)
	return ent, nil
}

// Acquire blocks until an entry is available, a new one is created, or ctx
// (or the pool's own Close) ends the wait.
func (p *Pool[T]) Acquire(ctx context.Context) (Entry[T], error) {
	if p.closed.Load() {
		return Entry[T]{}, ErrPoolClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	waitCtx, stop := mergeCancel(ctx, p.ctx)
	defer stop()

	if err := p.avail.acquirePermit(waitCtx); err != nil {
		if p.closed.Load() {
			return Entry[T]{}, ErrPoolClosed
		}
		return Entry[T]{}, err
	}

	return p.claimOrCreate()
}

// TryAcquire is the non-blocking variant: it returns immediately if no
// permit is currently available.
func (p *Pool[T]) TryAcquire() (Entry[T], bool, error) {
	if p.closed.Load() {
		return Entry[T]{}, false, ErrPoolClosed
	}
	if !p.avail.tryAcquirePermit() {
		return Entry[T]{}, false, nil
	}

	e, err := p.claimOrCreate()
	if err != nil {
		return Entry[T]{}, false, err
	}
	return e, true, nil
}

// claimOrCreate assumes the caller already holds a semaphore permit. It
// pops an Available entry if one exists, otherwise lazily creates one.
func (p *Pool[T]) claimOrCreate() (Entry[T], error) {
	if key, ok := p.avail.popAvailable(); ok {
		if ent, found := p.table.get(key); found {
			ent.mu.Lock()
			claimed := ent.transition(StatusAvailable, StatusAcquired)
			ent.mu.Unlock()
			if claimed {
				p.stats.acquired.Add(1)
				return Entry[T]{inner: ent}, nil
			}
		}
		// The popped key no longer names a claimable entry (e.g. a
		// concurrent scale-in beat us to it); fall through and create one
		// instead of losing the permit we already hold.
	}

	ent, err := p.createEntry(StatusAcquired)
	if err != nil {
		p.avail.releasePermit()
		return Entry[T]{}, fmt.Errorf("%w: %w", ErrFactoryFailed, err)
	}
	p.stats.created.Add(1)
	p.stats.acquired.Add(1)
	return Entry[T]{inner: ent}, nil
}

// Release requires the entry be Acquired and owned by this pool. Once the
// pool is closed, Release is a no-op that always succeeds: Close has already
// (or will have) closed every in-table entry, so there is nothing left to
// requeue.
func (p *Pool[T]) Release(e Entry[T]) error {
	ent := e.inner
	if ent == nil || ent.owner != p.table {
		return ErrMisuse
	}
	if p.closed.Load() {
		return nil
	}

	ent.mu.Lock()
	ok := ent.transition(StatusAcquired, StatusAvailable)
	if ok {
		ent.lastUsedTime = time.Now()
	}
	ent.mu.Unlock()
	if !ok {
		return ErrMisuse
	}

	p.avail.pushAvailable(ent.key)
	p.avail.releasePermit()
	p.stats.released.Add(1)
	return nil
}

// Close transitions the pool to a terminal state: subsequent Acquire/
// TryAcquire calls fail with ErrPoolClosed, pending Acquire calls unblock
// with the same error, and every resident entry is closed exactly once via
// the configured onClose hook.
func (p *Pool[T]) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrPoolClosed
	}
	p.cancel()

	for _, ent := range p.table.all() {
		p.closeEntry(ent)
	}
	return nil
}

func (p *Pool[T]) closeEntry(ent *entry[T]) {
	ent.mu.Lock()
	if ent.status == StatusClosed {
		ent.mu.Unlock()
		return
	}
	ent.status = StatusClosed
	obj := ent.object
	ent.mu.Unlock()

	if p.config.onClose != nil {
		p.config.onClose(obj)
	}
	p.stats.closed.Add(1)
}

// Size returns the number of entries currently resident in the pool,
// regardless of status.
func (p *Pool[T]) Size() int {
	return p.table.size()
}
