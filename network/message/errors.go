package message

import "errors"

var (
	ErrUnknownKind = errors.New("unknown message kind")
	ErrMalformed   = errors.New("malformed packet")
)
