package dseq

// admitLatest serves both UnreliableOrdered and LastMessageReliable.
// Anything at or past the tip is accepted and becomes the new baseline;
// anything older is stale.
// Skipped numbers are never tracked.
func (e *Engine) admitLatest(seq uint64, peer PeerID, streamID uint64) AdmitResult {
	if seq < e.tip {
		return rejected(Stale, peer, streamID, seq)
	}
	e.advancePast(seq)
	return accepted()
}

// admitUnreliableUnordered behaves like the reliable unordered window,
// except it never holds.
// A sequence number past the window discards the window entirely
// and restarts it just after that number.
func (e *Engine) admitUnreliableUnordered(seq uint64, peer PeerID, streamID uint64) AdmitResult {
	switch {
	case seq < e.tip:
		return rejected(Stale, peer, streamID, seq)

	case seq == e.tip:
		return e.admitTip(peer, streamID)

	case seq-e.tip < windowSize:
		return e.admitInWindow(seq, peer, streamID)

	default:
		e.advancePast(seq)
		e.seen = 0
		return accepted()
	}
}
