package sim

import (
	"context"
	"time"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/Rendaw/kademlia/event"
	"github.com/Rendaw/kademlia/network/endpoint"
	"github.com/Rendaw/kademlia/network/message"
)

// Router delivers messages between the endpoints of a simulation. Messages are handled on
// the scheduler of the receiving endpoint.
type Router struct {
	currStream endpoint.StreamID
	peers      map[string]endpoint.SimEndpoint
	scheds     map[string]event.Scheduler
	offline    map[string]bool

	// Latency delays the delivery of every message.
	Latency time.Duration
}

func NewRouter() *Router {
	return &Router{
		currStream: 1,
		peers:      make(map[string]endpoint.SimEndpoint),
		scheds:     make(map[string]event.Scheduler),
		offline:    make(map[string]bool),
	}
}

func (r *Router) AddPeer(addr ma.Multiaddr, peer endpoint.SimEndpoint, sched event.Scheduler) {
	r.peers[addr.String()] = peer
	r.scheds[addr.String()] = sched
}

func (r *Router) RemovePeer(addr ma.Multiaddr) {
	delete(r.peers, addr.String())
	delete(r.scheds, addr.String())
	delete(r.offline, addr.String())
}

// SetOffline makes the router drop every message sent to addr while offline is true.
func (r *Router) SetOffline(addr ma.Multiaddr, offline bool) {
	if offline {
		r.offline[addr.String()] = true
		return
	}
	delete(r.offline, addr.String())
}

// NewStreamID returns an unused stream id.
func (r *Router) NewStreamID() endpoint.StreamID {
	sid := r.currStream
	r.currStream++
	return sid
}

// SendMessage hands msg to the endpoint listening on to. The message is lost if there is no
// such endpoint or if it is offline.
func (r *Router) SendMessage(ctx context.Context, from, to ma.Multiaddr, sid endpoint.StreamID,
	response bool, msg message.Message,
) error {
	peer, ok := r.peers[to.String()]
	if !ok {
		return endpoint.ErrUnknownPeer
	}
	if r.offline[to.String()] {
		return ErrOffline
	}
	deliver := event.BasicAction(func(ctx context.Context) {
		peer.HandleMessage(ctx, from, sid, response, msg)
	})
	event.ScheduleActionIn(ctx, r.scheds[to.String()], r.Latency, deliver)
	return nil
}
