package event

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestSimplePlanner(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock()
	p := NewSimplePlanner(clk)
	require.Equal(t, MaxTime, p.NextActionTime(ctx))
	require.Empty(t, p.PopOverdueActions(ctx))

	now := clk.Now()
	p.ScheduleAction(ctx, now.Add(3*time.Second), IntAction(3))
	a1 := p.ScheduleAction(ctx, now.Add(time.Second), IntAction(1))
	p.ScheduleAction(ctx, now.Add(2*time.Second), IntAction(2))
	// same time as IntAction(2), planned later
	p.ScheduleAction(ctx, now.Add(2*time.Second), IntAction(4))

	require.Equal(t, now.Add(time.Second), p.NextActionTime(ctx))
	require.Equal(t, IntAction(1), a1.Action())
	require.Equal(t, now.Add(time.Second), a1.Time())

	require.True(t, p.RemoveAction(ctx, a1))
	require.False(t, p.RemoveAction(ctx, a1))
	require.Equal(t, now.Add(2*time.Second), p.NextActionTime(ctx))

	clk.Add(2 * time.Second)
	require.Equal(t, []Action{IntAction(2), IntAction(4)}, p.PopOverdueActions(ctx))
	require.Empty(t, p.PopOverdueActions(ctx))

	clk.Add(time.Hour)
	require.Equal(t, []Action{IntAction(3)}, p.PopOverdueActions(ctx))
	require.Equal(t, MaxTime, p.NextActionTime(ctx))
}

func TestSimplePlannerRemoveForeign(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock()
	p, other := NewSimplePlanner(clk), NewSimplePlanner(clk)

	p.ScheduleAction(ctx, clk.Now(), IntAction(0))
	pa := other.ScheduleAction(ctx, clk.Now(), IntAction(1))
	require.False(t, p.RemoveAction(ctx, pa))
	require.False(t, p.RemoveAction(ctx, nil))
	require.Len(t, p.PopOverdueActions(ctx), 1)
}
