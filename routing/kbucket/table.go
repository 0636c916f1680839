// Package kbucket implements a Kademlia routing table made of k-buckets that only admits
// validated nodes.
//
// Buckets are indexed by the length of the prefix their keys share with the local node. All
// buckets but the last hold the keys sharing exactly their index bits with the local node; the
// last bucket holds every key sharing at least that many and is the only one that splits when
// it fills up. A Table is not safe for concurrent use and is meant to be confined to a single
// scheduler.
package kbucket

import (
	"context"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Rendaw/kademlia/key"
	"github.com/Rendaw/kademlia/node"
	"github.com/Rendaw/kademlia/util"
)

var logger = logging.Logger("kad/kbucket")

// Table is a routing table of k-buckets around the local id. Only validated nodes are
// accepted and no bucket ever holds more than the configured bucket size.
type Table struct {
	self    key.Key
	cfg     Config
	buckets []*Bucket
}

// New returns an empty routing table for the node with id self.
func New(self key.Key, cfg *Config) (*Table, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Table{
		self:    self,
		cfg:     *cfg,
		buckets: []*Bucket{newBucket(self, 0, cfg.Clock.Now())},
	}, nil
}

// Self returns the local id the table is built around.
func (t *Table) Self() key.Key {
	return t.self
}

// BucketSize returns k, the capacity of every bucket.
func (t *Table) BucketSize() int {
	return t.cfg.BucketSize
}

// BucketCount returns the current number of buckets.
func (t *Table) BucketCount() int {
	return len(t.buckets)
}

// Buckets returns the buckets ordered by the length of the prefix they share with the
// local node.
func (t *Table) Buckets() []*Bucket {
	buckets := make([]*Bucket, len(t.buckets))
	copy(buckets, t.buckets)
	return buckets
}

// Size returns the number of nodes in the table.
func (t *Table) Size() int {
	n := 0
	for _, b := range t.buckets {
		n += len(b.nodes)
	}
	return n
}

func (t *Table) bucketIndex(id key.Key) int {
	bid := t.self.CommonPrefixLength(id)
	if last := len(t.buckets) - 1; bid > last {
		bid = last
	}
	return bid
}

// BucketFor returns the bucket whose range covers id.
func (t *Table) BucketFor(id key.Key) *Bucket {
	return t.buckets[t.bucketIndex(id)]
}

// IsNewNode reports whether the table does not hold a node with the given id.
func (t *Table) IsNewNode(id key.Key) bool {
	return indexOf(t.BucketFor(id).nodes, id) < 0
}

// Find returns the member with the given id.
func (t *Table) Find(ctx context.Context, id key.Key) (*node.Validated, bool) {
	_, span := util.StartSpan(ctx, "kbucket.Find", trace.WithAttributes(
		attribute.String("KadID", id.HexString()),
	))
	defer span.End()

	b := t.BucketFor(id)
	if i := indexOf(b.nodes, id); i >= 0 {
		return b.nodes[i], true
	}
	return nil, false
}

// AddContact adds n to the table, or marks it as most recently seen if it is already a
// member, and reports whether n is a member afterwards.
//
// A full bucket is split if it is the last one and splitting makes room. Otherwise, if the
// bucket has not been touched for longer than the configured staleness window, its least
// recently seen member is replaced by n. If neither applies n is remembered in the bucket's
// replacement cache and left out of the table.
func (t *Table) AddContact(n *node.Validated) bool {
	id := n.ID()
	if id == t.self {
		return false
	}
	now := t.cfg.Clock.Now()

	bid := t.bucketIndex(id)
	b := t.buckets[bid]

	if i := indexOf(b.nodes, id); i >= 0 {
		// seen again, move it to the most recently seen end
		b.nodes = append(remove(b.nodes, i), n)
		b.touch(now)
		return true
	}

	if len(b.nodes) < t.cfg.BucketSize {
		t.insert(b, n, now)
		return true
	}

	if bid == len(t.buckets)-1 {
		ok := t.split(id)
		b = t.BucketFor(id)
		if ok {
			t.insert(b, n, now)
			return true
		}
	}

	if now.Sub(b.lastUpdated) > t.cfg.StaleAfter {
		evicted := b.nodes[0]
		b.nodes = remove(b.nodes, 0)
		t.insert(b, n, now)
		logger.Debugw("replaced stale node", "evicted", evicted, "added", n, "depth", b.depth)
		return true
	}

	b.addReplacement(n, t.cfg.ReplacementCacheSize)
	logger.Debugw("bucket full", "node", n, "depth", b.depth)
	return false
}

func (t *Table) insert(b *Bucket, n *node.Validated, now time.Time) {
	if i := indexOf(b.replacements, n.ID()); i >= 0 {
		b.replacements = remove(b.replacements, i)
	}
	b.nodes = append(b.nodes, n)
	b.touch(now)
}

// split splits the last bucket until the bucket covering id has room. It returns false if the
// bucket covering id is still full when no further split is possible.
func (t *Table) split(id key.Key) bool {
	cpl := t.self.CommonPrefixLength(id)
	for {
		last := len(t.buckets) - 1
		b := t.buckets[last]
		if len(b.nodes) < t.cfg.BucketSize {
			return true
		}
		if last == t.self.BitLen()-1 {
			return false
		}

		// far keeps the keys sharing exactly last bits with self, near the ones sharing more
		far := newBucket(t.self.FlipBit(last), last+1, b.lastUpdated)
		near := newBucket(t.self, last+1, b.lastUpdated)

		for _, n := range b.nodes {
			if t.self.CommonPrefixLength(n.ID()) == last {
				far.nodes = append(far.nodes, n)
			} else {
				near.nodes = append(near.nodes, n)
			}
		}
		if len(far.nodes) == t.cfg.BucketSize && cpl == last {
			// every member stays where it is and so would the new node
			return false
		}
		for _, n := range b.replacements {
			if t.self.CommonPrefixLength(n.ID()) == last {
				far.replacements = append(far.replacements, n)
			} else {
				near.replacements = append(near.replacements, n)
			}
		}

		t.buckets[last] = far
		t.buckets = append(t.buckets, near)
		logger.Debugw("split bucket", "depth", last, "far", len(far.nodes), "near", len(near.nodes))

		if cpl == last {
			return true
		}
	}
}

// RemoveContact removes the node with the given id and reports whether it was a member. The
// most recently seen replacement candidate of the bucket, if any, takes the freed slot.
func (t *Table) RemoveContact(id key.Key) bool {
	b := t.BucketFor(id)
	i := indexOf(b.nodes, id)
	if i < 0 {
		if j := indexOf(b.replacements, id); j >= 0 {
			b.replacements = remove(b.replacements, j)
		}
		return false
	}
	b.nodes = remove(b.nodes, i)
	if r := b.popReplacement(); r != nil {
		b.nodes = append(b.nodes, r)
		logger.Debugw("promoted replacement", "node", r, "depth", b.depth)
	}
	return true
}

// FindNeighbors returns up to count members closest to target in ascending order of
// distance, leaving out the nodes whose ids are listed in exclude.
func (t *Table) FindNeighbors(target key.Key, count int, exclude ...key.Key) []*node.Validated {
	h := node.NewHeap(target, count)

	skip := func(id key.Key) bool {
		for _, x := range exclude {
			if x == id {
				return true
			}
		}
		return false
	}
	push := func(b *Bucket) {
		for _, n := range b.nodes {
			if !skip(n.ID()) {
				h.Push(n)
			}
		}
	}

	// start at the bucket covering target and walk outwards
	start := t.bucketIndex(target)
	push(t.buckets[start])
	for d := 1; start-d >= 0 || start+d < len(t.buckets); d++ {
		if start-d >= 0 {
			push(t.buckets[start-d])
		}
		if start+d < len(t.buckets) {
			push(t.buckets[start+d])
		}
	}

	found := h.Nodes()
	neighbors := make([]*node.Validated, len(found))
	for i, n := range found {
		neighbors[i] = n.(*node.Validated)
	}
	return neighbors
}

// LonelyBuckets returns the buckets that have not been touched for longer than the
// configured staleness window.
func (t *Table) LonelyBuckets() []*Bucket {
	now := t.cfg.Clock.Now()
	var lonely []*Bucket
	for _, b := range t.buckets {
		if now.Sub(b.lastUpdated) > t.cfg.StaleAfter {
			lonely = append(lonely, b)
		}
	}
	return lonely
}
