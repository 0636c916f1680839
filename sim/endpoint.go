package sim

import (
	"context"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"
	ma "github.com/multiformats/go-multiaddr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Rendaw/kademlia/event"
	"github.com/Rendaw/kademlia/network/endpoint"
	"github.com/Rendaw/kademlia/network/message"
	"github.com/Rendaw/kademlia/util"
)

var logger = logging.Logger("kad/sim")

// Endpoint is a single threaded endpoint implementation simulating a network.
// It simulates a network and handles message exchanges between multiple peers in a simulation.
type Endpoint struct {
	self  ma.Multiaddr
	sched event.Scheduler

	handler        endpoint.RequestHandlerFn                       // server
	streamFollowup map[endpoint.StreamID]endpoint.ResponseHandlerFn // client
	streamTimeout  map[endpoint.StreamID]event.PlannedAction        // client

	router *Router
}

var _ endpoint.SimEndpoint = (*Endpoint)(nil)

func NewEndpoint(self ma.Multiaddr, sched event.Scheduler, router *Router) *Endpoint {
	e := &Endpoint{
		self:  self,
		sched: sched,

		streamFollowup: make(map[endpoint.StreamID]endpoint.ResponseHandlerFn),
		streamTimeout:  make(map[endpoint.StreamID]event.PlannedAction),

		router: router,
	}
	if router != nil {
		router.AddPeer(self, e, sched)
	}
	return e
}

func (e *Endpoint) LocalAddr() ma.Multiaddr {
	return e.self
}

// SendRequestHandleResponse sends req to the endpoint listening on to. A request that
// cannot be delivered is lost like a datagram would be, and handleResp is eventually called
// with endpoint.ErrTimeout.
func (e *Endpoint) SendRequestHandleResponse(ctx context.Context, to ma.Multiaddr,
	req message.Message, timeout time.Duration, handleResp endpoint.ResponseHandlerFn,
) error {
	ctx, span := util.StartSpan(ctx, "sim.SendRequestHandleResponse",
		trace.WithAttributes(attribute.Stringer("to", to)),
	)
	defer span.End()

	if handleResp == nil {
		return endpoint.ErrNilResponseHandler
	}

	sid := e.router.NewStreamID()
	e.streamFollowup[sid] = handleResp

	if err := e.router.SendMessage(ctx, e.self, to, sid, false, req); err != nil {
		span.RecordError(err)
		logger.Debugw("request lost", "from", e.self, "to", to, "kind", req.Kind(), "err", err)
	}

	// timeout
	if timeout != 0 {
		e.streamTimeout[sid] = event.ScheduleActionIn(ctx, e.sched, timeout,
			event.BasicAction(func(ctx context.Context) {
				ctx, span := util.StartSpan(ctx, "sim.SendRequestHandleResponse timeout",
					trace.WithAttributes(attribute.Stringer("to", to)),
				)
				defer span.End()

				handleFn, ok := e.streamFollowup[sid]
				delete(e.streamFollowup, sid)
				delete(e.streamTimeout, sid)
				if !ok || handleFn == nil {
					span.RecordError(fmt.Errorf("no followup for stream %d", sid))
					return
				}
				handleFn(ctx, nil, endpoint.ErrTimeout)
			}))
	}
	return nil
}

func (e *Endpoint) HandleMessage(ctx context.Context, from ma.Multiaddr, sid endpoint.StreamID,
	response bool, msg message.Message,
) {
	ctx, span := util.StartSpan(ctx, "sim.HandleMessage",
		trace.WithAttributes(attribute.Stringer("from", from),
			attribute.Int64("StreamID", int64(sid)),
			attribute.Bool("response", response)))
	defer span.End()

	if response {
		followup, ok := e.streamFollowup[sid]
		if !ok {
			span.RecordError(endpoint.ErrResponseReceivedAfterTimeout)
			return
		}
		if timeout, ok := e.streamTimeout[sid]; ok {
			e.sched.RemovePlannedAction(ctx, timeout)
		}
		// remove stream id from endpoint
		delete(e.streamFollowup, sid)
		delete(e.streamTimeout, sid)

		e.sched.EnqueueAction(ctx, event.BasicAction(func(ctx context.Context) {
			followup(ctx, msg, nil)
		}))
		return
	}

	if e.handler == nil {
		span.RecordError(endpoint.ErrNilRequestHandler)
		return
	}
	resp, err := e.handler(ctx, from, msg)
	if err != nil {
		span.RecordError(err)
		return
	}
	if err := e.router.SendMessage(ctx, e.self, from, sid, true, resp); err != nil {
		span.RecordError(err)
	}
}

func (e *Endpoint) SetRequestHandler(handler endpoint.RequestHandlerFn) error {
	if handler == nil {
		return endpoint.ErrNilRequestHandler
	}
	e.handler = handler
	return nil
}

// PendingRequests returns the number of requests still waiting for a response.
func (e *Endpoint) PendingRequests() int {
	return len(e.streamFollowup)
}
