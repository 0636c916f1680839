// Package udpendpoint sends Kademlia messages as msgpack datagrams over UDP.
package udpendpoint

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Rendaw/kademlia/event"
	"github.com/Rendaw/kademlia/network/endpoint"
	"github.com/Rendaw/kademlia/network/message"
	"github.com/Rendaw/kademlia/util"
)

var logger = logging.Logger("kad/udp")

// MaxDatagramSize is the largest datagram the endpoint reads.
const MaxDatagramSize = 64 * 1024

type pendingRequest struct {
	to      ma.Multiaddr
	fn      endpoint.ResponseHandlerFn
	timeout event.PlannedAction
}

// Endpoint is a server endpoint listening on a UDP socket. Inbound datagrams are read on a
// separate goroutine and handled on the scheduler, so request and response handlers run on
// the scheduler like every other action. SendRequestHandleResponse must be called from the
// scheduler too.
type Endpoint struct {
	conn  net.PacketConn
	self  ma.Multiaddr
	sched event.Scheduler

	handler endpoint.RequestHandlerFn
	pending map[string]*pendingRequest

	closeOnce sync.Once
	closeErr  error
}

var _ endpoint.ServerEndpoint = (*Endpoint)(nil)

// New listens on laddr, which must be a UDP multiaddr. A zero port picks a free one, and
// LocalAddr reports the address actually bound.
func New(laddr ma.Multiaddr, sched event.Scheduler) (*Endpoint, error) {
	conn, err := manet.ListenPacket(laddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", laddr, err)
	}
	self, err := manet.FromNetAddr(conn.LocalAddr())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("local address: %w", err)
	}
	return &Endpoint{
		conn:    conn,
		self:    self,
		sched:   sched,
		pending: make(map[string]*pendingRequest),
	}, nil
}

func (e *Endpoint) LocalAddr() ma.Multiaddr {
	return e.self
}

func (e *Endpoint) SetRequestHandler(handler endpoint.RequestHandlerFn) error {
	if handler == nil {
		return endpoint.ErrNilRequestHandler
	}
	e.handler = handler
	return nil
}

// Run reads datagrams until ctx is done or the endpoint is closed.
func (e *Endpoint) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		return e.readLoop(ctx)
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return e.Close()
		case <-done:
			return nil
		}
	})
	return g.Wait()
}

// Close closes the socket. Requests still waiting for a response time out.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.conn.Close()
	})
	return e.closeErr
}

func (e *Endpoint) readLoop(ctx context.Context) error {
	buf := make([]byte, MaxDatagramSize)
	for {
		n, addr, err := e.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		from, err := manet.FromNetAddr(addr)
		if err != nil {
			logger.Debugw("dropping datagram", "from", addr, "err", err)
			continue
		}
		p, msg, err := message.Decode(buf[:n])
		if err != nil {
			logger.Debugw("dropping datagram", "from", from, "err", err)
			continue
		}

		e.sched.EnqueueAction(ctx, event.BasicAction(func(ctx context.Context) {
			e.handlePacket(ctx, from, p, msg)
		}))
	}
}

func (e *Endpoint) handlePacket(ctx context.Context, from ma.Multiaddr, p *message.Packet, msg message.Message) {
	ctx, span := util.StartSpan(ctx, "udp.HandlePacket", trace.WithAttributes(
		attribute.Stringer("from", from),
		attribute.String("id", p.ID),
		attribute.Bool("response", p.Response),
	))
	defer span.End()

	if p.Response {
		pr, ok := e.pending[p.ID]
		if !ok {
			span.RecordError(endpoint.ErrResponseReceivedAfterTimeout)
			logger.Debugw("unexpected response", "from", from, "id", p.ID)
			return
		}
		if !pr.to.Equal(from) {
			logger.Debugw("response from unexpected address", "from", from, "expected", pr.to, "id", p.ID)
			return
		}
		delete(e.pending, p.ID)
		if pr.timeout != nil {
			e.sched.RemovePlannedAction(ctx, pr.timeout)
		}
		pr.fn(ctx, msg, nil)
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
	if err := e.send(p.ID, true, resp, from); err != nil {
		span.RecordError(err)
		logger.Debugw("cannot send response", "to", from, "err", err)
	}
}

func (e *Endpoint) SendRequestHandleResponse(ctx context.Context, to ma.Multiaddr,
	req message.Message, timeout time.Duration, handleResp endpoint.ResponseHandlerFn,
) error {
	ctx, span := util.StartSpan(ctx, "udp.SendRequestHandleResponse", trace.WithAttributes(
		attribute.Stringer("to", to),
		attribute.String("kind", string(req.Kind())),
	))
	defer span.End()

	if handleResp == nil {
		return endpoint.ErrNilResponseHandler
	}

	id := message.NewID()
	if err := e.send(id, false, req, to); err != nil {
		// the handler still sees the failure, on the scheduler like any response
		span.RecordError(err)
		logger.Debugw("request not sent", "to", to, "kind", req.Kind(), "err", err)
		e.sched.EnqueueAction(ctx, event.BasicAction(func(ctx context.Context) {
			handleResp(ctx, nil, err)
		}))
		return nil
	}

	pr := &pendingRequest{to: to, fn: handleResp}
	e.pending[id] = pr
	if timeout != 0 {
		pr.timeout = event.ScheduleActionIn(ctx, e.sched, timeout, event.BasicAction(func(ctx context.Context) {
			if _, ok := e.pending[id]; !ok {
				return
			}
			delete(e.pending, id)
			handleResp(ctx, nil, endpoint.ErrTimeout)
		}))
	}
	return nil
}

// PendingRequests returns the number of requests still waiting for a response.
func (e *Endpoint) PendingRequests() int {
	return len(e.pending)
}

func (e *Endpoint) send(id string, response bool, msg message.Message, to ma.Multiaddr) error {
	b, err := message.Encode(id, response, msg)
	if err != nil {
		return err
	}
	naddr, err := manet.ToNetAddr(to)
	if err != nil {
		return fmt.Errorf("address %s: %w", to, err)
	}
	if _, err := e.conn.WriteTo(b, naddr); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return endpoint.ErrClosed
		}
		return fmt.Errorf("write to %s: %w", to, err)
	}
	return nil
}
