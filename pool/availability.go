package pool

import (
	"context"

	"github.com/AlexsanderHamir/ringbuffer"
	"golang.org/x/sync/semaphore"
)

// availability is C3: a counting semaphore of claimable slots plus a
// producer/consumer queue of the keys currently sitting Available. A permit
// represents a slot a caller may claim, whether by popping a key from the
// queue or by creating a brand new entry. The two are alternatives drawing
// on the same budget, so the semaphore is initialized with maxSize permits
// and prewarming pushes keys into the queue without touching the semaphore.
type availability struct {
	sem   *semaphore.Weighted
	queue *ringbuffer.RingBuffer[uint64]
}

func newAvailability(maxSize int) *availability {
	q := ringbuffer.New[uint64](maxSize)
	q.WithBlocking(false)
	return &availability{
		sem:   semaphore.NewWeighted(int64(maxSize)),
		queue: q,
	}
}

// acquirePermit blocks until a permit is available or ctx is done.
func (a *availability) acquirePermit(ctx context.Context) error {
	return a.sem.Acquire(ctx, 1)
}

// tryAcquirePermit claims a permit without blocking.
func (a *availability) tryAcquirePermit() bool {
	return a.sem.TryAcquire(1)
}

func (a *availability) releasePermit() {
	a.sem.Release(1)
}

// popAvailable returns a key from the queue, or false if it is currently
// empty. Never blocks.
func (a *availability) popAvailable() (uint64, bool) {
	key, err := a.queue.GetOne()
	if err != nil {
		return 0, false
	}
	return key, true
}

// pushAvailable enqueues a key that just became Available. The queue's
// capacity equals maxSize and the caller only ever pushes a key it already
// holds a permit for, so this cannot overflow under the pool's own
// invariants; a write failure is treated as a programming-invariant
// violation and the key is simply dropped from the fast queue (the entry
// remains in the table and reachable by key, so no entry is lost; the next
// Acquire will just fall through to a slow create-check-fail path if it
// somehow raced this).
func (a *availability) pushAvailable(key uint64) {
	_ = a.queue.Write(key)
}
