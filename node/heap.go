package node

import (
	"container/heap"
	"sort"

	"github.com/Rendaw/kademlia/key"
)

type heapEntry struct {
	node      Node
	distance  key.Key
	contacted bool
}

// entries is a max-heap on the distance to the target, so the farthest member is always at
// index 0 and can be evicted in O(log k).
type entries []*heapEntry

func (e entries) Len() int           { return len(e) }
func (e entries) Less(i, j int) bool { return e[i].distance.Compare(e[j].distance) > 0 }
func (e entries) Swap(i, j int)      { e[i], e[j] = e[j], e[i] }

func (e *entries) Push(x any) {
	*e = append(*e, x.(*heapEntry))
}

func (e *entries) Pop() any {
	old := *e
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*e = old[:n-1]
	return x
}

// Heap is a bounded collection of the nodes closest to a fixed target. It is not safe for
// concurrent use.
type Heap struct {
	target  key.Key
	maxSize int
	entries entries
	index   map[key.Key]*heapEntry
}

// NewHeap returns an empty heap that keeps at most maxSize nodes closest to target.
func NewHeap(target key.Key, maxSize int) *Heap {
	return &Heap{
		target:  target,
		maxSize: maxSize,
		index:   make(map[key.Key]*heapEntry),
	}
}

// Target returns the key distances are measured to.
func (h *Heap) Target() key.Key {
	return h.target
}

// Push offers nodes to the heap. A node is kept if the heap is not full or if it is strictly
// closer to the target than the current farthest member, which is then evicted. Nodes whose
// id is already in the heap are ignored.
func (h *Heap) Push(nodes ...Node) {
	if h.maxSize <= 0 {
		return
	}
	for _, n := range nodes {
		id := n.ID()
		if _, ok := h.index[id]; ok {
			continue
		}
		e := &heapEntry{node: n, distance: h.target.Xor(id)}
		if len(h.entries) < h.maxSize {
			heap.Push(&h.entries, e)
			h.index[id] = e
			continue
		}
		farthest := h.entries[0]
		if e.distance.Compare(farthest.distance) >= 0 {
			continue
		}
		delete(h.index, farthest.node.ID())
		h.entries[0] = e
		heap.Fix(&h.entries, 0)
		h.index[id] = e
	}
}

// Remove drops the members with the given ids. Ids that are not in the heap are ignored.
func (h *Heap) Remove(ids ...key.Key) {
	changed := false
	for _, id := range ids {
		if _, ok := h.index[id]; !ok {
			continue
		}
		delete(h.index, id)
		changed = true
	}
	if !changed {
		return
	}
	kept := h.entries[:0]
	for _, e := range h.entries {
		if _, ok := h.index[e.node.ID()]; ok {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(h.entries); i++ {
		h.entries[i] = nil
	}
	h.entries = kept
	heap.Init(&h.entries)
}

func (h *Heap) sorted() []*heapEntry {
	s := make([]*heapEntry, len(h.entries))
	copy(s, h.entries)
	sort.Slice(s, func(i, j int) bool {
		return s[i].distance.Compare(s[j].distance) < 0
	})
	return s
}

// Nodes returns the members in ascending order of distance to the target.
func (h *Heap) Nodes() []Node {
	s := h.sorted()
	nodes := make([]Node, len(s))
	for i, e := range s {
		nodes[i] = e.node
	}
	return nodes
}

// IDs returns the ids of the members in ascending order of distance to the target.
func (h *Heap) IDs() []key.Key {
	s := h.sorted()
	ids := make([]key.Key, len(s))
	for i, e := range s {
		ids[i] = e.node.ID()
	}
	return ids
}

// Len returns the number of members.
func (h *Heap) Len() int {
	return len(h.entries)
}

// Contains reports whether a member has the given id.
func (h *Heap) Contains(id key.Key) bool {
	_, ok := h.index[id]
	return ok
}

// Get returns the member with the given id.
func (h *Heap) Get(id key.Key) (Node, bool) {
	e, ok := h.index[id]
	if !ok {
		return nil, false
	}
	return e.node, true
}

// MarkContacted records that a lookup has sent a request to n. Non-members are ignored.
func (h *Heap) MarkContacted(n Node) {
	if e, ok := h.index[n.ID()]; ok {
		e.contacted = true
	}
}

// Uncontacted returns the members not yet marked as contacted, closest first.
func (h *Heap) Uncontacted() []Node {
	var nodes []Node
	for _, e := range h.sorted() {
		if !e.contacted {
			nodes = append(nodes, e.node)
		}
	}
	return nodes
}

// AllBeenContacted reports whether every member has been marked as contacted.
func (h *Heap) AllBeenContacted() bool {
	for _, e := range h.entries {
		if !e.contacted {
			return false
		}
	}
	return true
}

// PopClosest removes and returns the member closest to the target.
func (h *Heap) PopClosest() (Node, bool) {
	if len(h.entries) == 0 {
		return nil, false
	}
	closest := 0
	for i := 1; i < len(h.entries); i++ {
		if h.entries[i].distance.Compare(h.entries[closest].distance) < 0 {
			closest = i
		}
	}
	e := heap.Remove(&h.entries, closest).(*heapEntry)
	delete(h.index, e.node.ID())
	return e.node, true
}
