package dseq

import (
	"github.com/bits-and-blooms/bitset"
)

// admitTip handles seq == tip for the windowed semantics.
// Bit 0 of the mask may already be set from an earlier out-of-order accept
// that has since shifted down to the tip,
// in which case the message is a duplicate.
// The tip advances either way.
func (e *Engine) admitTip(peer PeerID, streamID uint64) AdmitResult {
	seq := e.tip
	dup := e.seen&1 != 0

	e.advancePast(seq)
	e.seen >>= 1

	if dup {
		return rejected(Duplicate, peer, streamID, seq)
	}
	return accepted()
}

// admitInWindow handles tip < seq < tip+windowSize for the windowed semantics.
func (e *Engine) admitInWindow(seq uint64, peer PeerID, streamID uint64) AdmitResult {
	bit := uint64(1) << (seq - e.tip)
	if e.seen&bit != 0 {
		return rejected(Duplicate, peer, streamID, seq)
	}
	e.seen |= bit
	return accepted()
}

// appendMissingInWindow appends the absolute sequence number
// of every clear bit in the window, lowest first,
// stopping at the NACK limit.
func (e *Engine) appendMissingInWindow(nack []uint64) []uint64 {
	missing := bitset.From([]uint64{^e.seen})
	for i, ok := missing.NextSet(0); ok; i, ok = missing.NextSet(i + 1) {
		if e.full(nack) {
			break
		}
		nack = append(nack, e.tip+uint64(i))
	}
	return nack
}
