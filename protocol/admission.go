package protocol

import (
	"context"
	"errors"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/Rendaw/kademlia/network/endpoint"
	"github.com/Rendaw/kademlia/network/message"
	"github.com/Rendaw/kademlia/node"
	"github.com/Rendaw/kademlia/util"
)

// admit runs admission for the identity claimed by req, sent from the node at from, and
// calls onAdmitted once the sender has proven it. Admission never delays the response to
// req: unless the sender is already known at that address, a challenge is sent and the
// outcome is handled when its response arrives.
//
// The sender is not visible in the routing table before its response validates. Two requests
// from the same unknown node may both trigger a challenge, in which case both admit it.
func (e *Engine) admit(ctx context.Context, from ma.Multiaddr, req message.ClaimingRequest, onAdmitted func(context.Context)) {
	id, preID := req.Claim()
	if e.isSelf(id) {
		logger.Debugw("node claims our id", "from", from)
		return
	}

	claim := node.NewClaim(id, preID, from)
	if known, ok := e.rt.Find(ctx, id); ok && node.SameHome(known, claim) {
		e.rt.AddContact(known)
		if onAdmitted != nil {
			onAdmitted(ctx)
		}
		return
	}

	nonce, err := e.self.GenerateChallenge()
	if err != nil {
		logger.Warnw("cannot challenge node", "node", claim, "err", err)
		return
	}

	ctx, span := util.StartSpan(ctx, "protocol.admit")
	defer span.End()

	err = e.ep.SendRequestHandleResponse(ctx, from, &message.ChallengeRequest{Nonce: nonce}, e.cfg.RequestTimeout,
		func(ctx context.Context, resp message.Message, err error) {
			if err != nil {
				logger.Debugw("challenge failed", "node", claim, "err", err)
				return
			}
			cr, ok := resp.(*message.ChallengeResponse)
			if !ok {
				logger.Debugw("challenge failed", "node", claim, "err", endpoint.ErrInvalidResponseType)
				return
			}

			v, err := node.Validate(id, preID, from, nonce, cr.Response)
			if err != nil {
				var verr *node.ValidationError
				if errors.As(err, &verr) {
					logger.Warnw("rejected node", "node", claim, "kind", verr.Kind, "err", err)
				} else {
					logger.Debugw("challenge failed", "node", claim, "err", err)
				}
				return
			}

			e.rt.AddContact(v)
			logger.Debugw("admitted node", "node", v)
			if onAdmitted != nil {
				onAdmitted(ctx)
			}
		})
	if err != nil {
		span.RecordError(err)
		logger.Debugw("challenge not sent", "node", claim, "err", err)
	}
}
