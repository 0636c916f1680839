package node

import (
	"errors"
	"fmt"

	"github.com/Rendaw/kademlia/key"
)

var (
	// ErrBadSignature is matched by a ValidationError whose response did not verify.
	ErrBadSignature = errors.New("challenge response does not verify")
	// ErrIDMismatch is matched by a ValidationError whose id is not the digest of its pre-id.
	ErrIDMismatch = errors.New("node id is not derived from pre-id")
)

// ValidationKind tells why a node failed validation.
type ValidationKind int

const (
	BadSignature ValidationKind = iota + 1
	IDMismatch
)

func (k ValidationKind) String() string {
	switch k {
	case BadSignature:
		return "bad-signature"
	case IDMismatch:
		return "id-mismatch"
	default:
		return fmt.Sprintf("ValidationKind(%d)", int(k))
	}
}

// ValidationError is returned when a claimed identity cannot be validated.
type ValidationError struct {
	Kind      ValidationKind
	ID        key.Key
	PreID     []byte
	Challenge []byte
	Response  []byte
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid node %s (%s): pre-id %x, challenge %x, response %x",
		e.ID.HexString(), e.Kind, e.PreID, e.Challenge, e.Response)
}

func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrBadSignature:
		return e.Kind == BadSignature
	case ErrIDMismatch:
		return e.Kind == IDMismatch
	}
	return false
}
