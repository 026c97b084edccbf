package pool

// Status is the tagged state of an Entry. The only legal transitions are the
// ones performed by transition; anything else is a programming error.
type Status int32

const (
	// StatusInitialized is the zero value. Entries are constructed directly
	// in StatusAvailable or StatusAcquired once the factory has returned, so
	// no entry is ever in this state.
	StatusInitialized Status = iota
	// StatusAvailable means the entry sits in the availability queue, free
	// for any acquirer to claim.
	StatusAvailable
	// StatusAcquired means exactly one caller currently holds the entry.
	StatusAcquired
	// StatusClosed is terminal: the payload has been (or is being) handed to
	// the close hook and the entry will never transition again.
	StatusClosed
	// StatusPendingRefresh means an acquirer holds the entry but a refresh is
	// owed on release, set by the sweep when it finds a stale/expired entry
	// that is currently checked out.
	StatusPendingRefresh
)

func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusAvailable:
		return "available"
	case StatusAcquired:
		return "acquired"
	case StatusClosed:
		return "closed"
	case StatusPendingRefresh:
		return "pending_refresh"
	default:
		return "unknown"
	}
}

// legalTransitions enumerates the only edges the state machine permits.
var legalTransitions = map[Status]map[Status]bool{
	StatusInitialized:    {StatusAvailable: true, StatusAcquired: true},
	StatusAvailable:      {StatusAcquired: true, StatusClosed: true},
	StatusAcquired:       {StatusAvailable: true, StatusClosed: true, StatusPendingRefresh: true},
	StatusPendingRefresh: {StatusAvailable: true, StatusClosed: true},
	StatusClosed:         {},
}
