package protocol

import "errors"

var (
	// ErrUnknownRequest is returned by HandleRequest for messages that are not requests.
	ErrUnknownRequest = errors.New("unknown request")
	// ErrUnexpectedPeer is passed to a ping continuation when another node answered.
	ErrUnexpectedPeer = errors.New("unexpected node answered")
	// ErrNoAddress is returned when calling a node whose address is unknown.
	ErrNoAddress = errors.New("node has no address")
)
