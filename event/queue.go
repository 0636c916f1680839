package event

import (
	"context"
	"sync"
)

// Queue holds actions waiting to run, in the order they were enqueued.
type Queue interface {
	Enqueue(context.Context, Action)
	// Dequeue returns the oldest action, or nil if the queue is empty
	Dequeue(context.Context) Action
	Len() int
}

// EnqueueMany enqueues actions in order.
func EnqueueMany(ctx context.Context, q Queue, actions []Action) {
	for _, a := range actions {
		q.Enqueue(ctx, a)
	}
}

// FIFO is an unbounded Queue that may be used from several goroutines. Enqueue never blocks,
// so an action may enqueue follow-up actions on the scheduler that runs it.
type FIFO struct {
	mu      sync.Mutex
	actions []Action
}

var _ Queue = (*FIFO)(nil)

func NewFIFO() *FIFO {
	return &FIFO{}
}

func (q *FIFO) Enqueue(ctx context.Context, a Action) {
	q.mu.Lock()
	q.actions = append(q.actions, a)
	q.mu.Unlock()
}

func (q *FIFO) Dequeue(ctx context.Context) Action {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return nil
	}
	a := q.actions[0]
	q.actions[0] = nil
	q.actions = q.actions[1:]
	if len(q.actions) == 0 {
		// release the backing array once drained
		q.actions = nil
	}
	return a
}

func (q *FIFO) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}
