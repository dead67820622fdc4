package download

import "context"

// Result represents an in-flight or completed queued task.
type Result struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
	queue  *Queue
}

// Done returns a channel that is closed when the task completes.
func (r *Result) Done() <-chan struct{} { return r.done }

// Err blocks until this task completes and returns its error.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Wait blocks until all tasks in the queue complete.
// Returns all errors joined.
func (r *Result) Wait() error {
	return r.queue.Wait()
}

// Cancel cancels this task's context.
func (r *Result) Cancel() {
	r.cancel()
}
