package message

import (
	"testing"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Rendaw/kademlia/key"
	"github.com/Rendaw/kademlia/node"
)

func TestCodecFindNodeResponse(t *testing.T) {
	addr := ma.StringCast("/ip4/10.0.0.1/udp/4000")
	n := node.NewUnvalidated(key.Digest([]byte("n")), addr)
	resp := &FindNodeResponse{Nodes: []NodeInfo{NodeInfoFrom(n)}}

	id := NewID()
	b, err := Encode(id, true, resp)
	require.NoError(t, err)

	p, msg, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, id, p.ID)
	require.True(t, p.Response)
	require.Equal(t, KindFindNode, p.Kind)
	require.Equal(t, resp, msg)

	got, err := msg.(*FindNodeResponse).Nodes[0].ToUnvalidated()
	require.NoError(t, err)
	require.Equal(t, n.ID(), got.ID())
	require.True(t, addr.Equal(got.Addr()))
}

func TestCodecRequestResponseSameKind(t *testing.T) {
	req := &PingRequest{ID: key.Digest([]byte("a")), PreID: []byte{1, 2}, Nonce: []byte{3}}
	b, err := Encode(NewID(), false, req)
	require.NoError(t, err)
	_, msg, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, req, msg)

	id, preID := msg.(ClaimingRequest).Claim()
	require.Equal(t, req.ID, id)
	require.Equal(t, req.PreID, preID)
}

func TestDecodeErrors(t *testing.T) {
	_, _, err := Decode([]byte("not msgpack"))
	require.ErrorIs(t, err, ErrMalformed)

	b, err := msgpack.Marshal(&Packet{ID: "nope", Kind: KindPing})
	require.NoError(t, err)
	_, _, err = Decode(b)
	require.ErrorIs(t, err, ErrMalformed)

	b, err = msgpack.Marshal(&Packet{ID: NewID(), Kind: "gossip"})
	require.NoError(t, err)
	_, _, err = Decode(b)
	require.ErrorIs(t, err, ErrUnknownKind)

	// found_value only exists as a response
	_, err = New(KindFoundValue, false)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestNodeInfoBadAddr(t *testing.T) {
	_, err := NodeInfo{ID: key.Digest([]byte("n")), Addr: []byte{0xff, 0xff}}.ToUnvalidated()
	require.Error(t, err)
}
