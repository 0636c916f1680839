package protocol

import (
	"context"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/Rendaw/kademlia/key"
	"github.com/Rendaw/kademlia/node"
	"github.com/Rendaw/kademlia/util"
)

// RefreshIDs returns one random id from the range of every bucket that has not been touched
// for longer than the staleness window.
func (e *Engine) RefreshIDs() []key.Key {
	lonely := e.rt.LonelyBuckets()
	ids := make([]key.Key, 0, len(lonely))
	for _, b := range lonely {
		ids = append(ids, b.RandomID(e.cfg.Rand))
	}
	return ids
}

// Refresh asks the known node closest to each refresh id for its neighbors of that id, and
// pings the ones not in the routing table yet. done, which may be nil, is called with the
// number of nodes discovered once every find_node call has completed.
func (e *Engine) Refresh(ctx context.Context, done func(ctx context.Context, discovered int)) {
	ctx, span := util.StartSpan(ctx, "protocol.Refresh")
	defer span.End()

	var targets []*node.Validated
	var finds []key.Key
	for _, id := range e.RefreshIDs() {
		nearest := e.rt.FindNeighbors(id, 1)
		if len(nearest) == 0 {
			continue
		}
		targets = append(targets, nearest[0])
		finds = append(finds, id)
	}
	logger.Debugw("refreshing buckets", "count", len(targets))

	e.discover(ctx, targets, finds, done)
}

// Bootstrap pings the nodes listening on addrs and asks every one that answers for the
// local node's neighbors. done, which may be nil, is called with the number of nodes
// discovered once every bootstrap node has been handled.
func (e *Engine) Bootstrap(ctx context.Context, addrs []ma.Multiaddr, done func(ctx context.Context, discovered int)) {
	ctx, span := util.StartSpan(ctx, "protocol.Bootstrap")
	defer span.End()

	pending := len(addrs)
	discovered := 0
	if pending == 0 {
		if done != nil {
			done(ctx, 0)
		}
		return
	}
	complete := func(ctx context.Context, n int) {
		discovered += n
		pending--
		if pending == 0 && done != nil {
			done(ctx, discovered)
		}
	}

	for _, addr := range addrs {
		addr := addr
		err := e.CallPing(ctx, node.NewUnvalidated(key.Key{}, addr), func(ctx context.Context, v *node.Validated, err error) {
			if err != nil {
				logger.Warnw("bootstrap node did not answer", "addr", addr, "err", err)
				complete(ctx, 0)
				return
			}
			e.discover(ctx, []*node.Validated{v}, []key.Key{e.self.ID()}, complete)
		})
		if err != nil {
			logger.Warnw("cannot ping bootstrap node", "addr", addr, "err", err)
			complete(ctx, 0)
		}
	}
}

// discover sends a find_node for finds[i] to targets[i] and pings the returned nodes that are
// not in the routing table yet, closest to finds[i] first.
func (e *Engine) discover(ctx context.Context, targets []*node.Validated, finds []key.Key, done func(context.Context, int)) {
	pending := len(targets)
	discovered := 0
	if pending == 0 {
		if done != nil {
			done(ctx, 0)
		}
		return
	}
	complete := func(ctx context.Context) {
		pending--
		if pending == 0 && done != nil {
			done(ctx, discovered)
		}
	}

	for i, target := range targets {
		find := finds[i]
		err := e.CallFindNode(ctx, target, find, func(ctx context.Context, nodes []*node.Unvalidated, err error) {
			if err == nil {
				candidates := node.NewHeap(find, e.cfg.BucketSize)
				for _, n := range nodes {
					if e.rt.IsNewNode(n.ID()) {
						candidates.Push(n)
					}
				}
				discovered += candidates.Len()
				for n, ok := candidates.PopClosest(); ok; n, ok = candidates.PopClosest() {
					if err := e.CallPing(ctx, n, nil); err != nil {
						logger.Debugw("cannot ping discovered node", "node", n, "err", err)
					}
				}
			}
			complete(ctx)
		})
		if err != nil {
			logger.Debugw("cannot refresh", "node", target, "err", err)
			complete(ctx)
		}
	}
}
