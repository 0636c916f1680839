package protocol

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Rendaw/kademlia/key"
	"github.com/Rendaw/kademlia/node"
	"github.com/Rendaw/kademlia/store"
	"github.com/Rendaw/kademlia/util"
)

// TransferKeyValues sends newNode the stored values it should hold, and returns how many
// stores were issued. done, which may be nil, is called with that number once every store
// has completed, whether or not it succeeded. A newNode that acknowledges a store is added
// to the routing table without a second transfer.
//
// A value is sent if no other node is known close to its key, or if newNode is closer to the
// key than the farthest of the k known nodes closest to it while the local node is closer than
// the nearest of them.
func (e *Engine) TransferKeyValues(ctx context.Context, newNode *node.Validated, done func(ctx context.Context, issued int)) int {
	ctx, span := util.StartSpan(ctx, "protocol.TransferKeyValues", trace.WithAttributes(
		attribute.String("node", newNode.ID().HexString()),
	))
	defer span.End()

	var transfer []store.Pair
	for _, p := range e.store.All(ctx) {
		if e.shouldTransfer(newNode, key.Digest(p.Key)) {
			transfer = append(transfer, p)
		}
	}
	span.SetAttributes(attribute.Int("count", len(transfer)))

	issued := len(transfer)
	if issued == 0 {
		if done != nil {
			done(ctx, 0)
		}
		return 0
	}

	logger.Debugw("transferring values", "node", newNode, "count", issued)
	pending := issued
	complete := func(ctx context.Context, _ error) {
		pending--
		if pending == 0 && done != nil {
			done(ctx, issued)
		}
	}
	for _, p := range transfer {
		if err := e.callStore(ctx, newNode, p.Key, p.Value, false, complete); err != nil {
			complete(ctx, err)
		}
	}
	return issued
}

func (e *Engine) shouldTransfer(newNode *node.Validated, keynode key.Key) bool {
	neighbors := e.rt.FindNeighbors(keynode, e.cfg.BucketSize, newNode.ID())
	if len(neighbors) == 0 {
		return true
	}
	newNodeClose := key.Closer(keynode, newNode.ID(), neighbors[len(neighbors)-1].ID())
	thisNodeClosest := key.Closer(keynode, e.self.ID(), neighbors[0].ID())
	return newNodeClose && thisNodeClosest
}
