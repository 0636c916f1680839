package sim

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/Rendaw/kademlia/event"
	kt "github.com/Rendaw/kademlia/internal/kadtest"
	"github.com/Rendaw/kademlia/network/endpoint"
	"github.com/Rendaw/kademlia/network/message"
)

func TestRouter(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock()
	router := NewRouter()

	nPeers := 4
	scheds := make([]*event.SimpleScheduler, nPeers)
	for i := 0; i < nPeers; i++ {
		scheds[i] = event.NewSimpleScheduler(clk)
		NewEndpoint(kt.Addr(i), scheds[i], router)
	}

	require.Equal(t, endpoint.StreamID(1), router.NewStreamID())
	require.Equal(t, endpoint.StreamID(2), router.NewStreamID())

	err := router.SendMessage(ctx, kt.Addr(0), kt.Addr(1), 1, false, &message.StunRequest{})
	require.NoError(t, err)
	require.True(t, scheds[1].RunOne(ctx))
	require.False(t, scheds[1].RunOne(ctx))

	err = router.SendMessage(ctx, kt.Addr(3), kt.Addr(100), 2, false, &message.StunRequest{})
	require.ErrorIs(t, err, endpoint.ErrUnknownPeer)

	router.SetOffline(kt.Addr(2), true)
	err = router.SendMessage(ctx, kt.Addr(0), kt.Addr(2), 3, false, &message.StunRequest{})
	require.ErrorIs(t, err, ErrOffline)
	require.False(t, scheds[2].RunOne(ctx))

	router.SetOffline(kt.Addr(2), false)
	require.NoError(t, router.SendMessage(ctx, kt.Addr(0), kt.Addr(2), 4, false, &message.StunRequest{}))
	require.True(t, scheds[2].RunOne(ctx))

	router.RemovePeer(kt.Addr(1))
	err = router.SendMessage(ctx, kt.Addr(0), kt.Addr(1), 5, false, &message.StunRequest{})
	require.ErrorIs(t, err, endpoint.ErrUnknownPeer)
	require.False(t, scheds[1].RunOne(ctx))
}

func TestRouterLatency(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock()
	router := NewRouter()
	router.Latency = time.Second

	sched := event.NewSimpleScheduler(clk)
	NewEndpoint(kt.Addr(1), sched, router)

	require.NoError(t, router.SendMessage(ctx, kt.Addr(0), kt.Addr(1), 1, false, &message.StunRequest{}))
	require.False(t, sched.RunOne(ctx))
	require.Equal(t, clk.Now().Add(time.Second), sched.NextActionTime(ctx))

	clk.Add(time.Second)
	require.True(t, sched.RunOne(ctx))
}
