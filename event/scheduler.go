package event

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler runs actions as soon as possible or at a specific time.
type Scheduler interface {
	// Clock returns the clock the scheduler plans actions with
	Clock() clock.Clock

	// EnqueueAction enqueues an action to run as soon as possible
	EnqueueAction(context.Context, Action)
	// ScheduleAction schedules an action to run at a specific time
	ScheduleAction(context.Context, time.Time, Action) PlannedAction
	// RemovePlannedAction removes an action from the scheduler planned actions
	// (not from the queue), does nothing if the action is not in the planner
	RemovePlannedAction(context.Context, PlannedAction) bool

	// RunOne runs one action from the scheduler's queue, returning true if an
	// action was run, false if the queue was empty
	RunOne(context.Context) bool
}

// AwareScheduler is a scheduler that can return the time of the next scheduled
// action.
type AwareScheduler interface {
	Scheduler

	// NextActionTime returns the time of the next action in the scheduler's
	// queue or MaxTime if the queue is empty
	NextActionTime(context.Context) time.Time
}

// NotifyingScheduler is an AwareScheduler that signals when new work arrives.
type NotifyingScheduler interface {
	AwareScheduler

	// Wakeup returns a channel that receives a value after an action was enqueued or
	// scheduled.
	Wakeup() <-chan struct{}
}

// ScheduleActionIn schedules an action to run after a delay
func ScheduleActionIn(ctx context.Context, s Scheduler, d time.Duration, a Action) PlannedAction {
	if d <= 0 {
		s.EnqueueAction(ctx, a)
		return nil
	}
	return s.ScheduleAction(ctx, s.Clock().Now().Add(d), a)
}

// RunAll runs all actions in the scheduler's queue and overdue actions from
// the planner
func RunAll(ctx context.Context, s Scheduler) {
	for s.RunOne(ctx) {
	}
}

// Run drives s in real time until ctx is done: it runs every runnable action, then sleeps
// until new work arrives or the next planned action is due. It returns ctx.Err().
func Run(ctx context.Context, s NotifyingScheduler) error {
	clk := s.Clock()
	for {
		RunAll(ctx, s)

		var (
			timer *clock.Timer
			due   <-chan time.Time
		)
		if next := s.NextActionTime(ctx); next != MaxTime {
			timer = clk.Timer(next.Sub(clk.Now()))
			due = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-s.Wakeup():
		case <-due:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}
