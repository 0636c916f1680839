package sim

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Rendaw/kademlia/event"
	"github.com/Rendaw/kademlia/util"
)

// LiteSimulator steps a network of nodes whose schedulers share a mock clock. Every action due
// at the current instant runs before the clock jumps to the next planned action, so timeouts
// only fire once no message can still arrive before them.
type LiteSimulator struct {
	clk        *clock.Mock
	schedulers []event.AwareScheduler
}

func NewLiteSimulator(clk *clock.Mock) *LiteSimulator {
	return &LiteSimulator{clk: clk}
}

func (s *LiteSimulator) Clock() *clock.Mock {
	return s.clk
}

// Add registers schedulers to be stepped by Run.
func (s *LiteSimulator) Add(scheds ...event.AwareScheduler) {
	s.schedulers = append(s.schedulers, scheds...)
}

// Remove stops stepping the given schedulers. Their pending actions are left in place.
func (s *LiteSimulator) Remove(scheds ...event.AwareScheduler) {
	kept := s.schedulers[:0]
	for _, sched := range s.schedulers {
		removed := false
		for _, r := range scheds {
			if sched == r {
				removed = true
				break
			}
		}
		if !removed {
			kept = append(kept, sched)
		}
	}
	s.schedulers = kept
}

// Run runs actions until no scheduler has anything left, advancing the clock as needed.
func (s *LiteSimulator) Run(ctx context.Context) {
	ctx, span := util.StartSpan(ctx, "sim.LiteSimulator.Run")
	defer span.End()

	for {
		s.settle(ctx)

		next := s.nextActionTime(ctx)
		if next == event.MaxTime {
			return
		}
		s.clk.Set(next)
	}
}

// settle drains every scheduler until none has an action due now. Actions may hand work to
// other schedulers, hence the repeated passes.
func (s *LiteSimulator) settle(ctx context.Context) {
	for busy := true; busy; {
		busy = false
		now := s.clk.Now()
		for _, sched := range s.schedulers {
			if !sched.NextActionTime(ctx).After(now) {
				event.RunAll(ctx, sched)
				busy = true
			}
		}
	}
}

func (s *LiteSimulator) nextActionTime(ctx context.Context) time.Time {
	next := event.MaxTime
	for _, sched := range s.schedulers {
		if t := sched.NextActionTime(ctx); t.Before(next) {
			next = t
		}
	}
	return next
}
