package threadpool

import "go.uber.org/zap"

// taskMsg pairs a task with the channel its submitter waits on for
// completion.
type taskMsg struct {
	fn   func()
	done chan struct{}
}

// worker is the payload type housed in the underlying object pool: a
// long-lived goroutine waiting on a private, unbuffered mailbox. Each worker
// runs exactly one task at a time and is never handed a second task until the
// first one's done channel has been closed.
type worker struct {
	mailbox chan taskMsg
}

// newWorker starts the worker's run loop on its own goroutine and returns
// without waiting for it; the unbuffered mailbox makes the first send wait
// until the loop receives.
// The loop exits, and wg.Done is called, when mailbox is closed. The owning
// thread pool closes it from its onClose hook when the underlying entry is
// torn down (refresh, scale-in, or pool Close).
func newWorker(wg waitGroup) *worker {
	w := &worker{mailbox: make(chan taskMsg)}
	go func() {
		defer wg.Done()
		for msg := range w.mailbox {
			msg.fn()
			close(msg.done)
		}
	}()
	return w
}

// waitGroup is the subset of *sync.WaitGroup newWorker needs, so tests can
// stand in a fake without spinning up a real one.
type waitGroup interface {
	Done()
}

// run hands task to w's mailbox and blocks until it has finished executing.
// Called from a dedicated per-dispatch goroutine, never from Submit itself.
func (w *worker) run(task func()) {
	done := make(chan struct{})
	w.mailbox <- taskMsg{fn: task, done: done}
	<-done
}

// wrapTask isolates a panicking task so it cannot take the worker's run loop
// down with it; the panic is logged and swallowed, matching step 2 of the
// worker loop's contract ("execute the task, catching and reporting any
// throw").
func wrapTask(logger *zap.Logger, task func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("task panicked", zap.Any("recover", r))
			}
		}()
		task()
	}
}
