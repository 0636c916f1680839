package node

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/libp2p/go-libp2p/core/crypto"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/Rendaw/kademlia/key"
)

const (
	// SeedSize is the length of the secret an Own identity is derived from.
	SeedSize = 32
	// ChallengeSize is the length of the nonces generated by GenerateChallenge.
	ChallengeSize = 32
)

// Own is the local node's identity. Its pre-id is an Ed25519 public key and its id is the
// digest of that key; the matching private key answers challenges.
type Own struct {
	base
	seed  []byte
	priv  crypto.PrivKey
	preID []byte
	rand  io.Reader
}

var _ Node = (*Own)(nil)

// NewOwn creates a fresh identity. Seed and challenge randomness are read from r; a nil r
// reads from crypto/rand.
func NewOwn(r io.Reader) (*Own, error) {
	if r == nil {
		r = rand.Reader
	}
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return RestoreOwn(seed, r)
}

// RestoreOwn rebuilds the identity derived from seed. Challenges are generated from r, or
// from crypto/rand if r is nil.
func RestoreOwn(seed []byte, r io.Reader) (*Own, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes long, got %d", SeedSize, len(seed))
	}
	if r == nil {
		r = rand.Reader
	}
	priv, pub, err := crypto.GenerateEd25519Key(bytes.NewReader(seed))
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	preID, err := pub.Raw()
	if err != nil {
		return nil, fmt.Errorf("encode public key: %w", err)
	}
	s := make([]byte, SeedSize)
	copy(s, seed)
	return &Own{
		base:  base{id: key.Digest(preID)},
		seed:  s,
		priv:  priv,
		preID: preID,
		rand:  r,
	}, nil
}

// WithAddr returns a copy of the identity bound to addr.
func (o *Own) WithAddr(addr ma.Multiaddr) *Own {
	c := *o
	c.addr = addr
	return &c
}

// PreID returns the public key the node id is derived from.
func (o *Own) PreID() []byte {
	return o.preID
}

// Seed returns the secret this identity was derived from.
func (o *Own) Seed() []byte {
	return o.seed
}

// GenerateChallenge returns a fresh random nonce to send to a peer that must prove its
// identity.
func (o *Own) GenerateChallenge() ([]byte, error) {
	c := make([]byte, ChallengeSize)
	if _, err := io.ReadFull(o.rand, c); err != nil {
		return nil, fmt.Errorf("generate challenge: %w", err)
	}
	return c, nil
}

// CompleteChallenge returns the response proving this node holds the key behind its pre-id.
func (o *Own) CompleteChallenge(challenge []byte) ([]byte, error) {
	return o.priv.Sign(challenge)
}
