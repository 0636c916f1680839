package protocol

import (
	"context"
	"fmt"
	"testing"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/require"

	kt "github.com/Rendaw/kademlia/internal/kadtest"
	"github.com/Rendaw/kademlia/key"
	"github.com/Rendaw/kademlia/network/message"
	"github.com/Rendaw/kademlia/node"
)

func TestTransferOnFirstContact(t *testing.T) {
	ctx := context.Background()
	net := newTestNetwork(t, 2)
	net.engines[0].Storage().Set(ctx, []byte("k"), []byte("v"))

	// engine 0 knows nobody else, so a new node gets every value
	require.NoError(t, net.engines[0].CallPing(ctx, node.NewUnvalidated(key.Key{}, kt.Addr(1)), nil))
	net.sim.Run(ctx)

	v, ok := net.engines[1].Storage().Get(ctx, []byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
}

func TestTransferKeyValues(t *testing.T) {
	ctx := context.Background()
	net := newTestNetwork(t, 3)
	net.introduce(t, 0, 1)

	self := net.engines[0].Self().ID()
	known := net.engines[1].Self().ID()
	joining := net.validated(t, 2)

	// with a single known node, a value moves only if both the local node and the joining
	// node are closer to its key than the known node
	var transferred, kept []byte
	for i := 0; i < 1000 && (transferred == nil || kept == nil); i++ {
		k := []byte(fmt.Sprintf("k%d", i))
		d := key.Digest(k)
		if key.Closer(d, self, known) && key.Closer(d, joining.ID(), known) {
			if transferred == nil {
				transferred = k
			}
		} else if kept == nil {
			kept = k
		}
	}
	require.NotNil(t, transferred)
	require.NotNil(t, kept)

	e := net.engines[0]
	e.Storage().Set(ctx, kept, []byte("kept"))

	issued := -1
	require.Zero(t, e.TransferKeyValues(ctx, joining, func(ctx context.Context, n int) {
		issued = n
	}))
	require.Zero(t, issued)

	e.Storage().Set(ctx, transferred, []byte("moved"))
	issued = -1
	require.Equal(t, 1, e.TransferKeyValues(ctx, joining, func(ctx context.Context, n int) {
		issued = n
	}))
	require.Equal(t, -1, issued)

	net.sim.Run(ctx)
	require.Equal(t, 1, issued)

	v, ok := net.engines[2].Storage().Get(ctx, transferred)
	require.True(t, ok)
	require.Equal(t, []byte("moved"), v)
	_, ok = net.engines[2].Storage().Get(ctx, kept)
	require.False(t, ok)
}

func TestTransferToUnreachableNode(t *testing.T) {
	ctx := context.Background()
	net := newTestNetwork(t, 2)
	net.engines[0].Storage().Set(ctx, []byte("a"), []byte("1"))
	net.engines[0].Storage().Set(ctx, []byte("b"), []byte("2"))
	net.router.SetOffline(kt.Addr(1), true)

	issued := -1
	require.Equal(t, 2, net.engines[0].TransferKeyValues(ctx, net.validated(t, 1), func(ctx context.Context, n int) {
		issued = n
	}))
	net.sim.Run(ctx)

	// done still fires once every store has timed out
	require.Equal(t, 2, issued)
	require.False(t, net.knows(0, 1))
}

func TestTransferKeyValuesSendsOnce(t *testing.T) {
	ctx := context.Background()
	net := newTestNetwork(t, 2)
	net.engines[0].Storage().Set(ctx, []byte("k"), []byte("v"))

	stores := 0
	require.NoError(t, net.endpoints[1].SetRequestHandler(func(ctx context.Context, from ma.Multiaddr, req message.Message) (message.Message, error) {
		if _, ok := req.(*message.StoreRequest); ok {
			stores++
		}
		return net.engines[1].HandleRequest(ctx, from, req)
	}))

	// the joining node is not in the table yet
	require.Equal(t, 1, net.engines[0].TransferKeyValues(ctx, net.validated(t, 1), nil))
	net.sim.Run(ctx)

	require.Equal(t, 1, stores)
	require.True(t, net.knows(0, 1))
	v, ok := net.engines[1].Storage().Get(ctx, []byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
}
