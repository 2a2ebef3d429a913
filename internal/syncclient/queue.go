package syncclient

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// TaskError records a reconciliation task that failed in the background.
type TaskError struct {
	Task   string
	GameID string
	At     time.Time
	Err    error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("%s for game %s: %v", e.Task, e.GameID, e.Err)
}

func (e TaskError) Unwrap() error {
	return e.Err
}

// queue runs the reconciliation tasks of one session. Tasks run concurrently; a barrier task
// starts only after every task enqueued before it has finished. Tasks are never cancelled:
// each runs until its backend call succeeds or fails.
type queue struct {
	wg      sync.WaitGroup
	pending atomic.Int64

	mu       sync.Mutex
	inflight map[uint64]chan struct{}
	nextID   uint64

	onError func(task string, err error)
}

func newQueue(onError func(task string, err error)) *queue {
	return &queue{
		inflight: make(map[uint64]chan struct{}),
		onError:  onError,
	}
}

func (q *queue) enqueue(name string, run func(ctx context.Context) error) {
	q.start(name, nil, run)
}

func (q *queue) enqueueBarrier(name string, run func(ctx context.Context) error) {
	q.mu.Lock()
	before := make([]chan struct{}, 0, len(q.inflight))
	for _, done := range q.inflight {
		before = append(before, done)
	}
	q.mu.Unlock()
	q.start(name, before, run)
}

func (q *queue) start(name string, before []chan struct{}, run func(ctx context.Context) error) {
	done := make(chan struct{})
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	q.inflight[id] = done
	q.mu.Unlock()

	q.pending.Add(1)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer func() {
			q.mu.Lock()
			delete(q.inflight, id)
			q.mu.Unlock()
			q.pending.Add(-1)
			close(done)
		}()

		for _, prior := range before {
			<-prior
		}
		if err := run(context.Background()); err != nil {
			q.onError(name, err)
		}
	}()
}

// othersPending reports whether any task besides the calling one is still running.
func (q *queue) othersPending() bool {
	return q.pending.Load() > 1
}

func (q *queue) idle() bool {
	return q.pending.Load() == 0
}

func (q *queue) wait() {
	q.wg.Wait()
}
