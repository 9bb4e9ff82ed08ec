package dseq

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by [OrderingError] through [errors.Is].
var (
	ErrStale     = errors.New("stale sequence number")
	ErrDuplicate = errors.New("duplicate sequence number")
)

// OrderingErrorKind distinguishes the two reasons a message is rejected.
type OrderingErrorKind uint8

const (
	// Stale means the sequence number is behind the stream's tip.
	Stale OrderingErrorKind = iota + 1

	// Duplicate means the sequence number is inside the tracked window
	// and was already accepted.
	Duplicate
)

func (k OrderingErrorKind) String() string {
	switch k {
	case Stale:
		return "stale"
	case Duplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("OrderingErrorKind(%d)", uint8(k))
	}
}

// OrderingError is the reason carried by a rejected [AdmitResult].
//
// Neither kind is fatal to the engine.
// Whether repeated errors should tear down the stream
// is up to the caller.
type OrderingError struct {
	Kind OrderingErrorKind

	Peer     PeerID
	StreamID uint64
	Seq      uint64
}

func (e OrderingError) Error() string {
	return fmt.Sprintf(
		"%s sequence number %d on stream %d from peer %s",
		e.Kind, e.Seq, e.StreamID, e.Peer,
	)
}

// Is reports whether target is the sentinel matching e's kind.
func (e OrderingError) Is(target error) bool {
	switch e.Kind {
	case Stale:
		return target == ErrStale
	case Duplicate:
		return target == ErrDuplicate
	default:
		return false
	}
}
