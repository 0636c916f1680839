// Package node holds the identities a Kademlia node deals with and the bounded heap used to
// collect the nodes closest to a target.
//
// There are three kinds of identity. An Unvalidated node is whatever a remote peer claims to be.
// A Validated node is a claim that has been checked by a challenge/response round, and is the
// only kind the routing table accepts. Own is the local node, which can issue challenges and
// answer them.
package node

import (
	"fmt"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/Rendaw/kademlia/key"
)

// Node is the capability shared by every identity: an id, an address and the XOR distance
// to other nodes.
type Node interface {
	// ID returns the node's 160-bit identifier.
	ID() key.Key
	// Addr returns the network address the node was seen at. It may be nil.
	Addr() ma.Multiaddr
	// DistanceTo returns the XOR distance between this node and other.
	DistanceTo(other Node) key.Key
}

type base struct {
	id   key.Key
	addr ma.Multiaddr
}

func (b *base) ID() key.Key {
	return b.id
}

func (b *base) Addr() ma.Multiaddr {
	return b.addr
}

func (b *base) DistanceTo(other Node) key.Key {
	return b.id.Xor(other.ID())
}

func (b *base) String() string {
	if b.addr == nil {
		return b.id.String()
	}
	return fmt.Sprintf("%s@%s", b.id, b.addr)
}

// Unvalidated is a node identity claimed by a remote peer that has not been proven.
type Unvalidated struct {
	base
	preID []byte
}

var _ Node = (*Unvalidated)(nil)

// NewUnvalidated returns the claim that a node with the given id lives at addr.
func NewUnvalidated(id key.Key, addr ma.Multiaddr) *Unvalidated {
	return &Unvalidated{base: base{id: id, addr: addr}}
}

// NewClaim returns a claim that also carries the pre-id the id is supposedly derived from.
func NewClaim(id key.Key, preID []byte, addr ma.Multiaddr) *Unvalidated {
	return &Unvalidated{base: base{id: id, addr: addr}, preID: preID}
}

// PreID returns the claimed pre-id, or nil if the claim did not include one.
func (u *Unvalidated) PreID() []byte {
	return u.preID
}

// Equal reports whether a and b have the same id.
func Equal(a, b Node) bool {
	return a.ID() == b.ID()
}

// SameHome reports whether a and b were seen at the same address.
func SameHome(a, b Node) bool {
	if a.Addr() == nil || b.Addr() == nil {
		return false
	}
	return a.Addr().Equal(b.Addr())
}
