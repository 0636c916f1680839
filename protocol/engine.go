// Package protocol implements the Kademlia RPCs: it answers requests from other nodes, issues
// requests to them, and keeps the routing table and the storage up to date with the outcome.
//
// Nodes only enter the routing table after proving their identity. A node claiming an id in
// a request is sent a challenge, and is added once its response validates. Outbound calls
// validate the node they reach in the same way.
//
// An Engine is confined to the scheduler of its endpoint: every method must be called from
// an action running on that scheduler.
package protocol

import (
	"context"
	"fmt"

	logging "github.com/ipfs/go-log/v2"
	ma "github.com/multiformats/go-multiaddr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Rendaw/kademlia/key"
	"github.com/Rendaw/kademlia/network/endpoint"
	"github.com/Rendaw/kademlia/network/message"
	"github.com/Rendaw/kademlia/node"
	"github.com/Rendaw/kademlia/routing/kbucket"
	"github.com/Rendaw/kademlia/store"
	"github.com/Rendaw/kademlia/util"
)

var logger = logging.Logger("kad/protocol")

// Engine is the protocol side of a Kademlia node. It answers requests with the local
// identity, admits remote nodes into its routing table by challenge, and issues outbound calls
// whose outcome updates that table. An Engine is confined to the scheduler its endpoint runs
// handlers on.
type Engine struct {
	self  *node.Own
	ep    endpoint.ServerEndpoint
	store store.Storage
	rt    *kbucket.Table
	cfg   Config
}

// New returns an engine for the local node self, answering the requests received by ep.
func New(self *node.Own, ep endpoint.ServerEndpoint, st store.Storage, cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if self.Addr() == nil {
		self = self.WithAddr(ep.LocalAddr())
	}

	rt, err := kbucket.New(self.ID(), cfg.tableConfig())
	if err != nil {
		return nil, fmt.Errorf("routing table: %w", err)
	}

	e := &Engine{
		self:  self,
		ep:    ep,
		store: st,
		rt:    rt,
		cfg:   *cfg,
	}
	if err := ep.SetRequestHandler(e.HandleRequest); err != nil {
		return nil, fmt.Errorf("register request handler: %w", err)
	}
	return e, nil
}

// Self returns the local identity, bound to the address other nodes reach it at.
func (e *Engine) Self() *node.Own {
	return e.self
}

// RoutingTable returns the engine's routing table. It must only be used from the engine's
// scheduler.
func (e *Engine) RoutingTable() *kbucket.Table {
	return e.rt
}

// Storage returns the store holding the values this node is responsible for.
func (e *Engine) Storage() store.Storage {
	return e.store
}

// HandleRequest answers a request received from the node at from.
func (e *Engine) HandleRequest(ctx context.Context, from ma.Multiaddr, req message.Message) (message.Message, error) {
	ctx, span := util.StartSpan(ctx, "protocol.HandleRequest", trace.WithAttributes(
		attribute.Stringer("from", from),
	))
	defer span.End()

	if req == nil {
		return nil, ErrUnknownRequest
	}
	span.SetAttributes(attribute.String("kind", string(req.Kind())))

	var (
		resp message.Message
		err  error
	)
	switch r := req.(type) {
	case *message.StunRequest:
		resp = e.handleStun(from)
	case *message.ChallengeRequest:
		resp, err = e.handleChallenge(r)
	case *message.PingRequest:
		resp, err = e.handlePing(ctx, from, r)
	case *message.StoreRequest:
		resp = e.handleStore(ctx, from, r)
	case *message.FindNodeRequest:
		resp = e.handleFindNode(ctx, from, r)
	case *message.FindValueRequest:
		resp = e.handleFindValue(ctx, from, r)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownRequest, req.Kind())
	}
	if err != nil {
		span.RecordError(err)
		logger.Debugw("request not answered", "from", from, "kind", req.Kind(), "err", err)
		return nil, err
	}
	return resp, nil
}

func (e *Engine) isSelf(id key.Key) bool {
	return id == e.self.ID()
}
