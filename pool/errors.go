package pool

import "errors"

var (
	// ErrPoolClosed is returned by Acquire and TryAcquire once Close has run,
	// and by any Close after the first. Release after Close returns nil.
	ErrPoolClosed = errors.New("pool: closed")

	// ErrMisuse is returned by Release when the entry does not belong to this
	// pool or is not currently Acquired.
	ErrMisuse = errors.New("pool: entry not acquired from this pool")

	// ErrFactoryFailed wraps an error returned by the user-supplied factory on
	// the acquire path.
	ErrFactoryFailed = errors.New("pool: factory failed")

	// ErrConfigInvalid is returned by a config builder's Build method when a
	// required option is missing or an option violates its constraint.
	ErrConfigInvalid = errors.New("pool: invalid configuration")
)
