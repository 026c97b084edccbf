package pool

import "context"

// mergeCancel derives a context that is done when either parent or closeCtx
// is done, so a blocking Acquire unblocks on whichever comes first: the
// caller's own deadline/cancellation, or the pool being Closed. Kept separate
// from stdlib's single-parent context.WithCancel because Acquire has two
// independent cancellation sources.
func mergeCancel(parent, closeCtx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(closeCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
