// Package kadtest holds helpers shared by the tests of the other packages.
package kadtest

import (
	"fmt"
	"math/rand"
	"testing"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/require"

	"github.com/Rendaw/kademlia/key"
	"github.com/Rendaw/kademlia/node"
)

// NewOwn returns a deterministic local identity derived from n. Challenges it generates are
// deterministic too.
func NewOwn(t testing.TB, n int) *node.Own {
	t.Helper()
	rng := rand.New(rand.NewSource(int64(n)))
	seed := make([]byte, node.SeedSize)
	rng.Read(seed)
	o, err := node.RestoreOwn(seed, rng)
	require.NoError(t, err)
	return o.WithAddr(Addr(n))
}

// Addr returns a distinct udp address for each n.
func Addr(n int) ma.Multiaddr {
	return ma.StringCast(fmt.Sprintf("/ip4/10.%d.%d.%d/udp/4000", (n>>16)&0xff, (n>>8)&0xff, n&0xff))
}

// Validate runs a challenge round against o and returns the resulting validated node.
func Validate(t testing.TB, o *node.Own) *node.Validated {
	t.Helper()
	challenge, err := o.GenerateChallenge()
	require.NoError(t, err)
	response, err := o.CompleteChallenge(challenge)
	require.NoError(t, err)
	v, err := node.Validate(o.ID(), o.PreID(), o.Addr(), challenge, response)
	require.NoError(t, err)
	return v
}

// NewValidated returns the validated form of NewOwn(t, n).
func NewValidated(t testing.TB, n int) *node.Validated {
	t.Helper()
	return Validate(t, NewOwn(t, n))
}

// Identities generates validated nodes, starting at seed start, until pred has accepted
// count of them. It gives up after max attempts.
func Identities(t testing.TB, start, count, max int, pred func(*node.Validated) bool) []*node.Validated {
	t.Helper()
	var found []*node.Validated
	for n := start; n < start+max && len(found) < count; n++ {
		v := NewValidated(t, n)
		if pred == nil || pred(v) {
			found = append(found, v)
		}
	}
	require.Len(t, found, count, "not enough identities matched")
	return found
}

// WithCPL returns a predicate accepting nodes that share exactly cpl leading bits with self.
func WithCPL(self key.Key, cpl int) func(*node.Validated) bool {
	return func(v *node.Validated) bool {
		return v.ID().CommonPrefixLength(self) == cpl
	}
}
