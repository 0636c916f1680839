package event

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// SimpleScheduler is a simple implementation of the Scheduler interface. It
// uses a simple planner and a FIFO queue. Actions may be enqueued from any
// goroutine but are run by whoever calls RunOne.
type SimpleScheduler struct {
	clk clock.Clock

	queue   Queue
	planner AwareActionPlanner
	wakeup  chan struct{}
}

var _ NotifyingScheduler = (*SimpleScheduler)(nil)

// NewSimpleScheduler creates a new SimpleScheduler.
func NewSimpleScheduler(clk clock.Clock) *SimpleScheduler {
	return &SimpleScheduler{
		clk: clk,

		queue:   NewFIFO(),
		planner: NewSimplePlanner(clk),
		wakeup:  make(chan struct{}, 1),
	}
}

// Clock returns the scheduler's clock.
func (s *SimpleScheduler) Clock() clock.Clock {
	return s.clk
}

// Wakeup returns a channel that receives a value after an action was enqueued or scheduled.
func (s *SimpleScheduler) Wakeup() <-chan struct{} {
	return s.wakeup
}

func (s *SimpleScheduler) notify() {
	select {
	case s.wakeup <- struct{}{}:
	default:
	}
}

// EnqueueAction enqueues an action to be run as soon as possible.
func (s *SimpleScheduler) EnqueueAction(ctx context.Context, a Action) {
	s.queue.Enqueue(ctx, a)
	s.notify()
}

// ScheduleAction schedules an action to run at a specific time.
func (s *SimpleScheduler) ScheduleAction(ctx context.Context, t time.Time,
	a Action,
) PlannedAction {
	if s.clk.Now().After(t) {
		s.EnqueueAction(ctx, a)
		return nil
	}
	pa := s.planner.ScheduleAction(ctx, t, a)
	s.notify()
	return pa
}

// RemovePlannedAction removes an action from the scheduler planned actions
// (not from the queue), does nothing if the action is not in the planner
func (s *SimpleScheduler) RemovePlannedAction(ctx context.Context, a PlannedAction) bool {
	return s.planner.RemoveAction(ctx, a)
}

// moveOverdueActions moves all overdue actions from the planner to the queue.
func (s *SimpleScheduler) moveOverdueActions(ctx context.Context) {
	overdue := s.planner.PopOverdueActions(ctx)

	EnqueueMany(ctx, s.queue, overdue)
}

// RunOne runs one action from the scheduler's queue, returning true if an
// action was run, false if the queue was empty.
func (s *SimpleScheduler) RunOne(ctx context.Context) bool {
	s.moveOverdueActions(ctx)

	if a := s.queue.Dequeue(ctx); a != nil {
		a.Run(ctx)
		return true
	}
	return false
}

// NextActionTime returns the time of the next action to run, or the current
// time if there are actions to be run in the queue, or MaxTime if there
// are no scheduled to run.
func (s *SimpleScheduler) NextActionTime(ctx context.Context) time.Time {
	s.moveOverdueActions(ctx)
	nextScheduled := s.planner.NextActionTime(ctx)

	if s.queue.Len() > 0 {
		return s.clk.Now()
	}
	return nextScheduled
}
