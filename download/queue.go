package download

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// WorkFunc is the signature for queued work.
type WorkFunc func(ctx context.Context) error

// Queue runs work concurrently with an optional concurrency limit and
// collects the errors.
type Queue struct {
	wg       sync.WaitGroup
	sem      chan struct{}
	failFast bool
	shutdown atomic.Bool

	mu      sync.Mutex
	errs    []error
	nextID  int
	running map[int]context.CancelFunc
}

// NewQueue creates a Queue running at most maxConcurrent tasks at once.
// If maxConcurrent <= 0, concurrency is unlimited. With failFast the first
// error shuts the queue down and cancels every running task.
func NewQueue(maxConcurrent int, failFast bool) *Queue {
	q := &Queue{
		failFast: failFast,
		running:  make(map[int]context.CancelFunc),
	}
	if maxConcurrent > 0 {
		q.sem = make(chan struct{}, maxConcurrent)
	}
	return q
}

// Wait blocks until all tasks complete.
// Returns all errors joined via errors.Join.
func (q *Queue) Wait() error {
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()

	return errors.Join(q.errs...)
}

// Shutdown prevents tasks that have not started yet from running.
func (q *Queue) Shutdown() {
	q.shutdown.Store(true)
}

// Start launches fn in a new goroutine managed by the queue
// and returns a Result for tracking it.
func (q *Queue) Start(ctx context.Context, fn WorkFunc) *Result {
	ctx, cancel := context.WithCancel(ctx)
	r := &Result{
		done:   make(chan struct{}),
		cancel: cancel,
		queue:  q,
	}

	id := q.track(cancel)

	q.wg.Add(1)
	go func() {
		defer func() {
			q.untrack(id)
			cancel()
			close(r.done)
			q.wg.Done()
		}()

		if q.sem != nil {
			select {
			case q.sem <- struct{}{}:
				defer func() {
					<-q.sem
				}()
			case <-ctx.Done():
				r.err = ctx.Err()
				q.recordErr(r.err)
				return
			}
		}

		if q.shutdown.Load() {
			r.err = ErrQueueShutdown
			q.recordErr(r.err)
			return
		}

		r.err = fn(ctx)
		if r.err != nil {
			q.recordErr(r.err)
		}
	}()

	return r
}

func (q *Queue) track(cancel context.CancelFunc) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.nextID
	q.nextID++
	q.running[id] = cancel

	return id
}

func (q *Queue) untrack(id int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.running, id)
}

// recordErr appends err under the mutex, stopping the queue in fail fast
// mode.
func (q *Queue) recordErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.errs = append(q.errs, err)

	if q.failFast {
		q.shutdown.Store(true)
		for _, cancel := range q.running {
			cancel()
		}
	}
}
