package kbucket

import (
	"io"
	"time"

	"github.com/Rendaw/kademlia/key"
	"github.com/Rendaw/kademlia/node"
)

// Bucket holds the nodes of one contiguous range of the key space: every key starting with
// the first Depth bits of its prefix.
type Bucket struct {
	// nodes is ordered from least to most recently seen
	nodes []*node.Validated
	// replacements is ordered from least to most recently seen
	replacements []*node.Validated

	prefix      key.Key
	depth       int
	lastUpdated time.Time
}

func newBucket(prefix key.Key, depth int, lastUpdated time.Time) *Bucket {
	return &Bucket{
		prefix:      prefix,
		depth:       depth,
		lastUpdated: lastUpdated,
	}
}

// Nodes returns the members of the bucket from least to most recently seen.
func (b *Bucket) Nodes() []*node.Validated {
	nodes := make([]*node.Validated, len(b.nodes))
	copy(nodes, b.nodes)
	return nodes
}

// Replacements returns the candidates waiting for room in the bucket, most recent last.
func (b *Bucket) Replacements() []*node.Validated {
	nodes := make([]*node.Validated, len(b.replacements))
	copy(nodes, b.replacements)
	return nodes
}

// Len returns the number of members.
func (b *Bucket) Len() int {
	return len(b.nodes)
}

// Depth returns the number of leading bits shared by every key in the bucket's range.
func (b *Bucket) Depth() int {
	return b.depth
}

// Range returns the smallest and the largest key covered by the bucket.
func (b *Bucket) Range() (lo, hi key.Key) {
	return key.PrefixRange(b.prefix, b.depth)
}

// Covers reports whether k falls into the bucket's range.
func (b *Bucket) Covers(k key.Key) bool {
	return k.CommonPrefixLength(b.prefix) >= b.depth
}

// LastUpdated returns the last time a member was added or seen again.
func (b *Bucket) LastUpdated() time.Time {
	return b.lastUpdated
}

// RandomID returns a key drawn uniformly from the bucket's range using r.
func (b *Bucket) RandomID(r io.Reader) key.Key {
	return key.RandomWithPrefix(r, b.prefix, b.depth)
}

func indexOf(nodes []*node.Validated, id key.Key) int {
	for i, n := range nodes {
		if n.ID() == id {
			return i
		}
	}
	return -1
}

func remove(nodes []*node.Validated, i int) []*node.Validated {
	copy(nodes[i:], nodes[i+1:])
	nodes[len(nodes)-1] = nil
	return nodes[:len(nodes)-1]
}

func (b *Bucket) touch(now time.Time) {
	b.lastUpdated = now
}

// addReplacement remembers n as a candidate for the bucket, keeping at most max of them.
func (b *Bucket) addReplacement(n *node.Validated, max int) {
	if max == 0 {
		return
	}
	if i := indexOf(b.replacements, n.ID()); i >= 0 {
		b.replacements = remove(b.replacements, i)
	}
	if len(b.replacements) >= max {
		b.replacements = remove(b.replacements, 0)
	}
	b.replacements = append(b.replacements, n)
}

// popReplacement removes and returns the most recently seen candidate.
func (b *Bucket) popReplacement() *node.Validated {
	if len(b.replacements) == 0 {
		return nil
	}
	n := b.replacements[len(b.replacements)-1]
	b.replacements = remove(b.replacements, len(b.replacements)-1)
	return n
}
