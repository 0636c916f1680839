package event

import "context"

// Action is a unit of work run by a Scheduler.
type Action interface {
	Run(context.Context)
}

// BasicAction is a plain function used as an Action.
type BasicAction func(context.Context)

var _ Action = BasicAction(nil)

func (a BasicAction) Run(ctx context.Context) {
	a(ctx)
}
