package threadpool

import "errors"

// ErrNilTask is returned by Submit/TrySubmit when task is nil.
var ErrNilTask = errors.New("threadpool: task is nil")
