// Package endpoint defines how a Kademlia node exchanges messages with other nodes.
package endpoint

import (
	"context"
	"time"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/Rendaw/kademlia/network/message"
)

// RequestHandlerFn defines a function that handles a request from a remote node. If it
// returns an error no response is sent and the caller times out.
type RequestHandlerFn func(ctx context.Context, from ma.Multiaddr, req message.Message) (message.Message, error)

// ResponseHandlerFn defines a function that deals with the response to a
// request previously sent to a remote node. Exactly one of resp and err is non-nil.
type ResponseHandlerFn func(ctx context.Context, resp message.Message, err error)

// Endpoint defines how Kademlia nodes interacts with each other.
type Endpoint interface {
	// LocalAddr returns the address other nodes reach this endpoint at.
	LocalAddr() ma.Multiaddr
	// SendRequestHandleResponse sends a request to the given address and handles
	// the response, a transport failure or the timeout with the given handler. The handler
	// is run on the endpoint's scheduler. A zero timeout waits forever.
	SendRequestHandleResponse(ctx context.Context, to ma.Multiaddr, req message.Message,
		timeout time.Duration, handleResp ResponseHandlerFn) error
}

// ServerEndpoint is a Kademlia endpoint that can handle requests from remote
// nodes.
type ServerEndpoint interface {
	Endpoint
	// SetRequestHandler registers the handler of every inbound request.
	SetRequestHandler(RequestHandlerFn) error
}

// StreamID is a unique identifier for a stream.
type StreamID uint64

// SimEndpoint is a simulated endpoint that doesn't operate on real network
type SimEndpoint interface {
	ServerEndpoint
	// HandleMessage handles a request or the response to a request sent on stream sid.
	HandleMessage(ctx context.Context, from ma.Multiaddr, sid StreamID, response bool, msg message.Message)
}
