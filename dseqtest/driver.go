package dseqtest

import (
	"slices"

	"github.com/gordian-engine/dseq"
)

// Driver plays the role of a receive loop for tests:
// it admits sequence numbers into an engine,
// parks held numbers, and re-admits them when woken,
// recording every sequence number that was accepted.
type Driver struct {
	Engine *dseq.Engine

	Peer     dseq.PeerID
	StreamID uint64

	// Accepted sequence numbers, in the order they were accepted.
	Accepted []uint64

	// Every NACK list returned, in order.
	Nacks [][]uint64

	// Count of rejections by kind.
	Rejected map[dseq.OrderingErrorKind]int

	// Hold count including re-holds after a wake.
	Holds int

	woken []uint64
}

// NewDriver returns a Driver around a new engine with the given semantics.
func NewDriver(sem dseq.DeliverySemantics) *Driver {
	return &Driver{
		Engine:   dseq.New(sem),
		Peer:     "test-peer",
		StreamID: 1,
		Rejected: make(map[dseq.OrderingErrorKind]int),
	}
}

// Admit admits seq and then re-admits any sequence numbers
// whose wakers fired, until no wakes are outstanding.
// It returns the result of the first admission of seq.
func (d *Driver) Admit(seq uint64) dseq.AdmitResult {
	res := d.admit(seq)

	for len(d.woken) > 0 {
		next := d.woken[0]
		d.woken = d.woken[1:]
		d.admit(next)
	}

	return res
}

func (d *Driver) admit(seq uint64) dseq.AdmitResult {
	res := d.Engine.Admit(seq, d.Peer, d.StreamID, dseq.WakerFunc(func() {
		d.woken = append(d.woken, seq)
	}))

	switch res.Decision {
	case dseq.Accept:
		d.Accepted = append(d.Accepted, seq)
	case dseq.Hold:
		d.Holds++
		d.Nacks = append(d.Nacks, slices.Clone(res.Nack))
	case dseq.Reject:
		d.Rejected[res.Err.Kind]++
	}

	return res
}
