package node

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rendaw/kademlia/key"
)

func randomNodes(n int, seed int64) []Node {
	rng := rand.New(rand.NewSource(seed))
	nodes := make([]Node, n)
	for i := range nodes {
		nodes[i] = NewUnvalidated(key.Random(rng), nil)
	}
	return nodes
}

func closest(target key.Key, nodes []Node, k int) []key.Key {
	ids := make([]key.Key, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	sort.Slice(ids, func(i, j int) bool {
		return key.Closer(target, ids[i], ids[j])
	})
	if len(ids) > k {
		ids = ids[:k]
	}
	return ids
}

func TestHeapKeepsClosest(t *testing.T) {
	target := key.Random(rand.New(rand.NewSource(1)))
	nodes := randomNodes(100, 2)

	h := NewHeap(target, 20)
	for _, n := range nodes {
		h.Push(n)
	}
	require.Equal(t, 20, h.Len())
	require.Equal(t, closest(target, nodes, 20), h.IDs())

	got := h.Nodes()
	for i := 1; i < len(got); i++ {
		require.True(t, key.Closer(target, got[i-1].ID(), got[i].ID()))
	}
}

func TestHeapBelowCapacity(t *testing.T) {
	target := key.Key{}
	nodes := randomNodes(5, 3)

	h := NewHeap(target, 20)
	h.Push(nodes...)
	require.Equal(t, 5, h.Len())
	require.Equal(t, closest(target, nodes, 20), h.IDs())
}

func TestHeapEmpty(t *testing.T) {
	h := NewHeap(key.Key{}, 3)
	require.Empty(t, h.Nodes())
	require.True(t, h.AllBeenContacted())
	_, ok := h.PopClosest()
	require.False(t, ok)

	zero := NewHeap(key.Key{}, 0)
	zero.Push(randomNodes(3, 4)...)
	require.Zero(t, zero.Len())
}

func TestHeapDuplicateIgnored(t *testing.T) {
	id := key.Digest([]byte("dup"))
	first := NewUnvalidated(id, nil)
	second := NewUnvalidated(id, nil)

	h := NewHeap(key.Key{}, 3)
	h.Push(first, second)
	require.Equal(t, 1, h.Len())

	got, ok := h.Get(id)
	require.True(t, ok)
	require.Same(t, first, got)
}

func TestHeapFarthestNotAdmittedWhenFull(t *testing.T) {
	target := key.Key{}
	near := NewUnvalidated(key.MustFromBytes(append(make([]byte, key.Size-1), 0x01)), nil)
	mid := NewUnvalidated(key.MustFromBytes(append(make([]byte, key.Size-1), 0x02)), nil)
	far := NewUnvalidated(key.MustFromBytes(append([]byte{0x80}, make([]byte, key.Size-1)...)), nil)

	h := NewHeap(target, 2)
	h.Push(near, mid)
	h.Push(far)
	require.Equal(t, []key.Key{near.ID(), mid.ID()}, h.IDs())
	require.False(t, h.Contains(far.ID()))

	h = NewHeap(target, 2)
	h.Push(far, mid, near)
	require.Equal(t, []key.Key{near.ID(), mid.ID()}, h.IDs())
}

func TestHeapRemove(t *testing.T) {
	target := key.Key{}
	nodes := randomNodes(10, 5)
	h := NewHeap(target, 10)
	h.Push(nodes...)

	want := closest(target, nodes, 10)
	h.Remove(want[0], want[5], key.Digest([]byte("absent")))
	require.Equal(t, 8, h.Len())
	require.False(t, h.Contains(want[0]))
	require.False(t, h.Contains(want[5]))

	rest := append(append([]key.Key{}, want[1:5]...), want[6:]...)
	require.Equal(t, rest, h.IDs())

	// the freed room is available again
	h.Push(nodes...)
	require.Equal(t, 10, h.Len())
}

func TestHeapContacted(t *testing.T) {
	target := key.Key{}
	nodes := randomNodes(4, 6)
	h := NewHeap(target, 4)
	h.Push(nodes...)
	require.False(t, h.AllBeenContacted())

	order := h.Nodes()
	h.MarkContacted(order[0])
	h.MarkContacted(order[2])
	require.Equal(t, []Node{order[1], order[3]}, h.Uncontacted())

	h.MarkContacted(order[1])
	h.MarkContacted(order[3])
	require.True(t, h.AllBeenContacted())
	require.Empty(t, h.Uncontacted())
}

func TestHeapPopClosest(t *testing.T) {
	target := key.Key{}
	nodes := randomNodes(6, 7)
	h := NewHeap(target, 6)
	h.Push(nodes...)

	for _, id := range closest(target, nodes, 6) {
		n, ok := h.PopClosest()
		require.True(t, ok)
		require.Equal(t, id, n.ID())
	}
	require.Zero(t, h.Len())
}
