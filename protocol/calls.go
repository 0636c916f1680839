package protocol

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Rendaw/kademlia/key"
	"github.com/Rendaw/kademlia/network/endpoint"
	"github.com/Rendaw/kademlia/network/message"
	"github.com/Rendaw/kademlia/node"
	"github.com/Rendaw/kademlia/util"
)

// FindValueResult is the outcome of a find_value call: either the value, or the nodes the
// callee knows closest to the key.
type FindValueResult struct {
	Value []byte
	Found bool
	Nodes []*node.Unvalidated
}

// CallPing pings target and validates the node that answers. A target with a zero id stands
// for an unknown node at target.Addr(); otherwise the answer must come from target.ID().
// On success the node is added to the routing table, on failure target.ID() is removed from
// it. fn may be nil.
func (e *Engine) CallPing(ctx context.Context, target node.Node, fn func(context.Context, *node.Validated, error)) error {
	if target.Addr() == nil {
		return ErrNoAddress
	}
	ctx, span := util.StartSpan(ctx, "protocol.CallPing", trace.WithAttributes(
		attribute.Stringer("target", target.Addr()),
	))
	defer span.End()

	nonce, err := e.self.GenerateChallenge()
	if err != nil {
		return err
	}
	req := &message.PingRequest{ID: e.self.ID(), PreID: e.self.PreID(), Nonce: nonce}

	return e.ep.SendRequestHandleResponse(ctx, target.Addr(), req, e.cfg.RequestTimeout,
		func(ctx context.Context, resp message.Message, err error) {
			var v *node.Validated
			if err == nil {
				v, err = e.validatePing(target, nonce, resp)
			}
			switch {
			case err == nil:
				e.callSucceeded(ctx, v)
			case !target.ID().IsZero():
				e.callFailed(target, err)
			}
			if fn != nil {
				fn(ctx, v, err)
			}
		})
}

func (e *Engine) validatePing(target node.Node, nonce []byte, resp message.Message) (*node.Validated, error) {
	pr, ok := resp.(*message.PingResponse)
	if !ok {
		return nil, endpoint.ErrInvalidResponseType
	}
	if !target.ID().IsZero() && pr.ID != target.ID() {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrUnexpectedPeer, target.ID(), pr.ID)
	}
	if e.isSelf(pr.ID) {
		return nil, fmt.Errorf("%w: got our own id", ErrUnexpectedPeer)
	}
	return node.Validate(pr.ID, pr.PreID, target.Addr(), nonce, pr.Response)
}

// CallStore asks target to store value under key. fn may be nil.
func (e *Engine) CallStore(ctx context.Context, target *node.Validated, key, value []byte, fn func(context.Context, error)) error {
	return e.callStore(ctx, target, key, value, true, fn)
}

// callStore sends a store. A target that turns out to be new only receives the values it
// should hold if replicate is set, so stores issued by a transfer do not start another one.
func (e *Engine) callStore(ctx context.Context, target *node.Validated, key, value []byte, replicate bool, fn func(context.Context, error)) error {
	if target.Addr() == nil {
		return ErrNoAddress
	}
	ctx, span := util.StartSpan(ctx, "protocol.CallStore", trace.WithAttributes(
		attribute.Stringer("target", target.Addr()),
	))
	defer span.End()

	req := &message.StoreRequest{ID: e.self.ID(), PreID: e.self.PreID(), Key: key, Value: value}
	return e.ep.SendRequestHandleResponse(ctx, target.Addr(), req, e.cfg.RequestTimeout,
		func(ctx context.Context, resp message.Message, err error) {
			if err == nil {
				if _, ok := resp.(*message.StoreResponse); !ok {
					err = endpoint.ErrInvalidResponseType
				}
			}
			switch {
			case err != nil:
				e.callFailed(target, err)
			case replicate:
				e.callSucceeded(ctx, target)
			default:
				e.rt.AddContact(target)
			}
			if fn != nil {
				fn(ctx, err)
			}
		})
}

// CallFindNode asks target for the nodes it knows closest to find. fn may be nil.
func (e *Engine) CallFindNode(ctx context.Context, target *node.Validated, find key.Key, fn func(context.Context, []*node.Unvalidated, error)) error {
	if target.Addr() == nil {
		return ErrNoAddress
	}
	ctx, span := util.StartSpan(ctx, "protocol.CallFindNode", trace.WithAttributes(
		attribute.Stringer("target", target.Addr()),
		attribute.String("find", find.HexString()),
	))
	defer span.End()

	req := &message.FindNodeRequest{ID: e.self.ID(), PreID: e.self.PreID(), Target: find}
	return e.ep.SendRequestHandleResponse(ctx, target.Addr(), req, e.cfg.RequestTimeout,
		func(ctx context.Context, resp message.Message, err error) {
			var nodes []*node.Unvalidated
			if err == nil {
				if fr, ok := resp.(*message.FindNodeResponse); ok {
					nodes = e.parseNodes(fr.Nodes)
				} else {
					err = endpoint.ErrInvalidResponseType
				}
			}
			e.handleCallResponse(ctx, target, err)
			if fn != nil {
				fn(ctx, nodes, err)
			}
		})
}

// CallFindValue asks target for the value stored under key. fn may be nil.
func (e *Engine) CallFindValue(ctx context.Context, target *node.Validated, key []byte, fn func(context.Context, *FindValueResult, error)) error {
	if target.Addr() == nil {
		return ErrNoAddress
	}
	ctx, span := util.StartSpan(ctx, "protocol.CallFindValue", trace.WithAttributes(
		attribute.Stringer("target", target.Addr()),
	))
	defer span.End()

	req := &message.FindValueRequest{ID: e.self.ID(), PreID: e.self.PreID(), Key: key}
	return e.ep.SendRequestHandleResponse(ctx, target.Addr(), req, e.cfg.RequestTimeout,
		func(ctx context.Context, resp message.Message, err error) {
			var res *FindValueResult
			if err == nil {
				switch r := resp.(type) {
				case *message.FoundValueResponse:
					res = &FindValueResult{Value: r.Value, Found: true}
				case *message.FindNodeResponse:
					res = &FindValueResult{Nodes: e.parseNodes(r.Nodes)}
				default:
					err = endpoint.ErrInvalidResponseType
				}
			}
			e.handleCallResponse(ctx, target, err)
			if fn != nil {
				fn(ctx, res, err)
			}
		})
}

// parseNodes drops the entries that cannot be parsed and the local node.
func (e *Engine) parseNodes(infos []message.NodeInfo) []*node.Unvalidated {
	nodes := make([]*node.Unvalidated, 0, len(infos))
	for _, info := range infos {
		if e.isSelf(info.ID) {
			continue
		}
		n, err := info.ToUnvalidated()
		if err != nil {
			logger.Debugw("dropping node info", "err", err)
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// handleCallResponse updates the routing table with the outcome of a call to target.
func (e *Engine) handleCallResponse(ctx context.Context, target *node.Validated, err error) {
	if err != nil {
		e.callFailed(target, err)
		return
	}
	e.callSucceeded(ctx, target)
}

// callSucceeded adds a node that answered to the routing table. A node that was not known
// yet receives the values it should hold.
func (e *Engine) callSucceeded(ctx context.Context, v *node.Validated) {
	wasNew := e.rt.IsNewNode(v.ID())
	e.rt.AddContact(v)
	if wasNew {
		logger.Debugw("got response from new node", "node", v)
		e.TransferKeyValues(ctx, v, nil)
	}
}

// callFailed removes a node that did not answer properly from the routing table.
func (e *Engine) callFailed(target node.Node, err error) {
	logger.Debugw("no response, removing from routing table", "node", target, "err", err)
	e.rt.RemoveContact(target.ID())
}
