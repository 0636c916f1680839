package message

import (
	"fmt"

	"github.com/rs/xid"
	"github.com/vmihailenco/msgpack/v5"
)

// Packet is the envelope of a message sent in a single datagram. The ID of a response
// repeats the ID of the request it answers.
type Packet struct {
	ID       string             `msgpack:"id"`
	Response bool               `msgpack:"response"`
	Kind     Kind               `msgpack:"kind"`
	Body     msgpack.RawMessage `msgpack:"body"`
}

// NewID returns a fresh request id.
func NewID() string {
	return xid.New().String()
}

// Encode returns the datagram carrying msg.
func Encode(id string, response bool, msg Message) ([]byte, error) {
	body, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", msg.Kind(), err)
	}
	return msgpack.Marshal(&Packet{
		ID:       id,
		Response: response,
		Kind:     msg.Kind(),
		Body:     body,
	})
}

// Decode parses a datagram and the message it carries.
func Decode(b []byte) (*Packet, Message, error) {
	var p Packet
	if err := msgpack.Unmarshal(b, &p); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := xid.FromString(p.ID); err != nil {
		return nil, nil, fmt.Errorf("%w: bad id %q", ErrMalformed, p.ID)
	}
	msg, err := New(p.Kind, p.Response)
	if err != nil {
		return nil, nil, err
	}
	if err := msgpack.Unmarshal(p.Body, msg); err != nil {
		return nil, nil, fmt.Errorf("%w: %s body: %v", ErrMalformed, p.Kind, err)
	}
	return &p, msg, nil
}
