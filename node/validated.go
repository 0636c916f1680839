package node

import (
	"bytes"

	"github.com/libp2p/go-libp2p/core/crypto"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/Rendaw/kademlia/key"
)

// Validated is a node whose claimed identity has been proven by a challenge/response
// round. Values of this type can only be obtained from Validate.
type Validated struct {
	base
	preID []byte
}

var _ Node = (*Validated)(nil)

// Validate checks that response is the signature of challenge under the public key preID,
// and that id is the digest of preID. It returns a *ValidationError if either check fails.
func Validate(id key.Key, preID []byte, addr ma.Multiaddr, challenge, response []byte) (*Validated, error) {
	fail := func(kind ValidationKind) error {
		return &ValidationError{
			Kind:      kind,
			ID:        id,
			PreID:     preID,
			Challenge: challenge,
			Response:  response,
		}
	}

	pub, err := crypto.UnmarshalEd25519PublicKey(preID)
	if err != nil {
		return nil, fail(BadSignature)
	}
	if ok, err := pub.Verify(challenge, response); err != nil || !ok {
		return nil, fail(BadSignature)
	}
	if key.Digest(preID) != id {
		return nil, fail(IDMismatch)
	}

	return &Validated{
		base:  base{id: id, addr: addr},
		preID: bytes.Clone(preID),
	}, nil
}

// PreID returns the public key the node proved to hold.
func (v *Validated) PreID() []byte {
	return v.preID
}
