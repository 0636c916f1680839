package endpoint

import "errors"

var (
	ErrUnknownPeer                  = errors.New("unknown peer")
	ErrTimeout                      = errors.New("request timeout")
	ErrNilRequestHandler            = errors.New("nil request handler")
	ErrNilResponseHandler           = errors.New("nil response handler")
	ErrInvalidResponseType          = errors.New("invalid response type")
	ErrResponseReceivedAfterTimeout = errors.New("response received after timeout")
	ErrClosed                       = errors.New("endpoint closed")
)
