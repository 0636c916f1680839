package event

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// SimplePlanner keeps planned actions in a min-heap on their time. Actions planned for the
// same time become overdue in the order they were planned. It may be used from several
// goroutines.
type SimplePlanner struct {
	clk clock.Clock

	mu      sync.Mutex
	planned plannedHeap
	seq     uint64
}

var _ AwareActionPlanner = (*SimplePlanner)(nil)

type timedAction struct {
	action Action
	time   time.Time
	seq    uint64
	index  int // position in the heap, -1 once removed
}

var _ PlannedAction = (*timedAction)(nil)

func (a *timedAction) Time() time.Time {
	return a.time
}

func (a *timedAction) Action() Action {
	return a.action
}

type plannedHeap []*timedAction

func (h plannedHeap) Len() int { return len(h) }

func (h plannedHeap) Less(i, j int) bool {
	if h[i].time.Equal(h[j].time) {
		return h[i].seq < h[j].seq
	}
	return h[i].time.Before(h[j].time)
}

func (h plannedHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *plannedHeap) Push(x any) {
	a := x.(*timedAction)
	a.index = len(*h)
	*h = append(*h, a)
}

func (h *plannedHeap) Pop() any {
	old := *h
	n := len(old)
	a := old[n-1]
	old[n-1] = nil
	a.index = -1
	*h = old[:n-1]
	return a
}

func NewSimplePlanner(clk clock.Clock) *SimplePlanner {
	return &SimplePlanner{clk: clk}
}

func (p *SimplePlanner) ScheduleAction(ctx context.Context, t time.Time, a Action) PlannedAction {
	p.mu.Lock()
	defer p.mu.Unlock()

	ta := &timedAction{action: a, time: t, seq: p.seq}
	p.seq++
	heap.Push(&p.planned, ta)
	return ta
}

func (p *SimplePlanner) RemoveAction(ctx context.Context, pa PlannedAction) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	ta, ok := pa.(*timedAction)
	if !ok || ta.index < 0 || ta.index >= len(p.planned) || p.planned[ta.index] != ta {
		return false
	}
	heap.Remove(&p.planned, ta.index)
	return true
}

func (p *SimplePlanner) PopOverdueActions(ctx context.Context) []Action {
	p.mu.Lock()
	defer p.mu.Unlock()

	var overdue []Action
	now := p.clk.Now()
	for len(p.planned) > 0 && !p.planned[0].time.After(now) {
		overdue = append(overdue, heap.Pop(&p.planned).(*timedAction).action)
	}
	return overdue
}

func (p *SimplePlanner) NextActionTime(context.Context) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.planned) == 0 {
		return MaxTime
	}
	return p.planned[0].time
}
