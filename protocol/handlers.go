package protocol

import (
	"context"
	"fmt"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/Rendaw/kademlia/key"
	"github.com/Rendaw/kademlia/network/message"
)

func (e *Engine) handleStun(from ma.Multiaddr) message.Message {
	return &message.StunResponse{Addr: from.Bytes()}
}

func (e *Engine) handleChallenge(req *message.ChallengeRequest) (message.Message, error) {
	resp, err := e.self.CompleteChallenge(req.Nonce)
	if err != nil {
		return nil, fmt.Errorf("complete challenge: %w", err)
	}
	return &message.ChallengeResponse{Response: resp}, nil
}

func (e *Engine) handlePing(ctx context.Context, from ma.Multiaddr, req *message.PingRequest) (message.Message, error) {
	e.admit(ctx, from, req, nil)

	resp, err := e.self.CompleteChallenge(req.Nonce)
	if err != nil {
		return nil, fmt.Errorf("complete challenge: %w", err)
	}
	return &message.PingResponse{
		ID:       e.self.ID(),
		PreID:    e.self.PreID(),
		Response: resp,
	}, nil
}

// handleStore acknowledges every store but only writes the value once the sender has been
// admitted.
func (e *Engine) handleStore(ctx context.Context, from ma.Multiaddr, req *message.StoreRequest) message.Message {
	e.admit(ctx, from, req, func(ctx context.Context) {
		logger.Debugw("storing value", "from", from, "key", fmt.Sprintf("%x", req.Key))
		e.store.Set(ctx, req.Key, req.Value)
	})
	return &message.StoreResponse{Stored: true}
}

func (e *Engine) handleFindNode(ctx context.Context, from ma.Multiaddr, req *message.FindNodeRequest) message.Message {
	e.admit(ctx, from, req, nil)
	return e.neighborsResponse(req.Target, req.ID)
}

func (e *Engine) handleFindValue(ctx context.Context, from ma.Multiaddr, req *message.FindValueRequest) message.Message {
	e.admit(ctx, from, req, nil)
	if value, ok := e.store.Get(ctx, req.Key); ok {
		return &message.FoundValueResponse{Value: value}
	}
	return e.neighborsResponse(key.Digest(req.Key), req.ID)
}

func (e *Engine) neighborsResponse(target, caller key.Key) *message.FindNodeResponse {
	neighbors := e.rt.FindNeighbors(target, e.cfg.BucketSize, caller)
	return &message.FindNodeResponse{Nodes: message.NodeInfosFrom(neighbors)}
}
