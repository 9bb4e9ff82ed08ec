package dseq

import (
	"fmt"
)

// PeerID identifies the remote end of a stream.
// The engine only carries it into diagnostics;
// it never interprets the value.
type PeerID string

// Decision is the outcome of a single call to [*Engine.Admit].
type Decision uint8

const (
	// Accept means the message is admissible now
	// and its payload should be forwarded.
	Accept Decision = iota + 1

	// Hold means the message cannot be admitted yet.
	// The caller's waker has been registered
	// and the caller should suspend until it fires.
	Hold

	// Reject means the message must be discarded.
	Reject
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Hold:
		return "hold"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("Decision(%d)", uint8(d))
	}
}

// AdmitResult is returned from [*Engine.Admit].
type AdmitResult struct {
	Decision Decision

	// Sequence numbers the engine believes are missing
	// and worth requesting again.
	// Only set when Decision is Hold, and may be empty even then.
	Nack []uint64

	// Only set when Decision is Reject.
	Err *OrderingError
}

func accepted() AdmitResult {
	return AdmitResult{Decision: Accept}
}

func held(nack []uint64) AdmitResult {
	return AdmitResult{Decision: Hold, Nack: nack}
}

func rejected(kind OrderingErrorKind, peer PeerID, streamID, seq uint64) AdmitResult {
	return AdmitResult{
		Decision: Reject,
		Err: &OrderingError{
			Kind:     kind,
			Peer:     peer,
			StreamID: streamID,
			Seq:      seq,
		},
	}
}

func (r AdmitResult) String() string {
	switch r.Decision {
	case Hold:
		return fmt.Sprintf("hold nack=%v", r.Nack)
	case Reject:
		if r.Err != nil {
			return "reject " + r.Err.Kind.String()
		}
	}
	return r.Decision.String()
}
