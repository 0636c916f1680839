// Package message defines the requests and responses exchanged by Kademlia nodes and their
// datagram encoding.
package message

import (
	"fmt"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/Rendaw/kademlia/key"
	"github.com/Rendaw/kademlia/node"
)

// Kind names a message type on the wire.
type Kind string

const (
	KindStun       Kind = "stun"
	KindChallenge  Kind = "challenge"
	KindPing       Kind = "ping"
	KindStore      Kind = "store"
	KindFindNode   Kind = "find_node"
	KindFindValue  Kind = "find_value"
	KindFoundValue Kind = "found_value"
)

// Message is any request or response.
type Message interface {
	Kind() Kind
}

// ClaimingRequest is a request whose sender claims an identity. The receiver runs admission
// on the claim.
type ClaimingRequest interface {
	Message
	Claim() (id key.Key, preID []byte)
}

// StunRequest asks the receiver for the address it sees the sender at.
type StunRequest struct{}

type StunResponse struct {
	Addr []byte `msgpack:"addr"`
}

// ChallengeRequest asks the receiver to prove its identity by signing Nonce.
type ChallengeRequest struct {
	Nonce []byte `msgpack:"nonce"`
}

type ChallengeResponse struct {
	Response []byte `msgpack:"response"`
}

type PingRequest struct {
	ID    key.Key `msgpack:"id"`
	PreID []byte  `msgpack:"pre_id"`
	Nonce []byte  `msgpack:"nonce"`
}

// PingResponse carries the receiver's identity and its answer to the ping's nonce.
type PingResponse struct {
	ID       key.Key `msgpack:"id"`
	PreID    []byte  `msgpack:"pre_id"`
	Response []byte  `msgpack:"response"`
}

type StoreRequest struct {
	ID    key.Key `msgpack:"id"`
	PreID []byte  `msgpack:"pre_id"`
	Key   []byte  `msgpack:"key"`
	Value []byte  `msgpack:"value"`
}

// StoreResponse is always positive: a store from a sender that fails admission is dropped
// silently.
type StoreResponse struct {
	Stored bool `msgpack:"stored"`
}

type FindNodeRequest struct {
	ID     key.Key `msgpack:"id"`
	PreID  []byte  `msgpack:"pre_id"`
	Target key.Key `msgpack:"target"`
}

type FindNodeResponse struct {
	Nodes []NodeInfo `msgpack:"nodes"`
}

// FindValueRequest is answered by a FoundValueResponse if the receiver holds Key, and by a
// FindNodeResponse with the nodes closest to the key's digest otherwise.
type FindValueRequest struct {
	ID    key.Key `msgpack:"id"`
	PreID []byte  `msgpack:"pre_id"`
	Key   []byte  `msgpack:"key"`
}

type FoundValueResponse struct {
	Value []byte `msgpack:"value"`
}

func (*StunRequest) Kind() Kind        { return KindStun }
func (*StunResponse) Kind() Kind       { return KindStun }
func (*ChallengeRequest) Kind() Kind   { return KindChallenge }
func (*ChallengeResponse) Kind() Kind  { return KindChallenge }
func (*PingRequest) Kind() Kind        { return KindPing }
func (*PingResponse) Kind() Kind       { return KindPing }
func (*StoreRequest) Kind() Kind       { return KindStore }
func (*StoreResponse) Kind() Kind      { return KindStore }
func (*FindNodeRequest) Kind() Kind    { return KindFindNode }
func (*FindNodeResponse) Kind() Kind   { return KindFindNode }
func (*FindValueRequest) Kind() Kind   { return KindFindValue }
func (*FoundValueResponse) Kind() Kind { return KindFoundValue }

func (r *PingRequest) Claim() (key.Key, []byte)      { return r.ID, r.PreID }
func (r *StoreRequest) Claim() (key.Key, []byte)     { return r.ID, r.PreID }
func (r *FindNodeRequest) Claim() (key.Key, []byte)  { return r.ID, r.PreID }
func (r *FindValueRequest) Claim() (key.Key, []byte) { return r.ID, r.PreID }

var (
	_ ClaimingRequest = (*PingRequest)(nil)
	_ ClaimingRequest = (*StoreRequest)(nil)
	_ ClaimingRequest = (*FindNodeRequest)(nil)
	_ ClaimingRequest = (*FindValueRequest)(nil)
)

// New returns an empty message of the given kind to decode into. Requests and responses of
// the same kind share a name, so response selects which one is returned.
func New(kind Kind, response bool) (Message, error) {
	if response {
		switch kind {
		case KindStun:
			return &StunResponse{}, nil
		case KindChallenge:
			return &ChallengeResponse{}, nil
		case KindPing:
			return &PingResponse{}, nil
		case KindStore:
			return &StoreResponse{}, nil
		case KindFindNode:
			return &FindNodeResponse{}, nil
		case KindFoundValue:
			return &FoundValueResponse{}, nil
		}
	} else {
		switch kind {
		case KindStun:
			return &StunRequest{}, nil
		case KindChallenge:
			return &ChallengeRequest{}, nil
		case KindPing:
			return &PingRequest{}, nil
		case KindStore:
			return &StoreRequest{}, nil
		case KindFindNode:
			return &FindNodeRequest{}, nil
		case KindFindValue:
			return &FindValueRequest{}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q (response: %t)", ErrUnknownKind, kind, response)
}

// NodeInfo is the wire form of a node returned by find_node and find_value.
type NodeInfo struct {
	ID   key.Key `msgpack:"id"`
	Addr []byte  `msgpack:"addr"`
}

// NodeInfoFrom returns the wire form of n.
func NodeInfoFrom(n node.Node) NodeInfo {
	info := NodeInfo{ID: n.ID()}
	if n.Addr() != nil {
		info.Addr = n.Addr().Bytes()
	}
	return info
}

// NodeInfosFrom returns the wire form of nodes.
func NodeInfosFrom(nodes []*node.Validated) []NodeInfo {
	infos := make([]NodeInfo, len(nodes))
	for i, n := range nodes {
		infos[i] = NodeInfoFrom(n)
	}
	return infos
}

// ToUnvalidated returns the node described by the info. Nothing it claims has been checked.
func (i NodeInfo) ToUnvalidated() (*node.Unvalidated, error) {
	addr, err := ma.NewMultiaddrBytes(i.Addr)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", i.ID, err)
	}
	return node.NewUnvalidated(i.ID, addr), nil
}
