package dseq

// admitReliableOrdered admits only the tip itself.
// Anything ahead of the tip is held until every earlier number is accepted.
func (e *Engine) admitReliableOrdered(
	seq uint64, peer PeerID, streamID uint64, w Waker,
) AdmitResult {
	switch {
	case seq < e.tip:
		return rejected(Stale, peer, streamID, seq)

	case seq == e.tip:
		// A leftover registration for the tip itself is no longer needed.
		delete(e.pending, seq)
		e.advancePast(seq)

		if !e.exhausted {
			// Whoever is waiting on the new tip can now proceed.
			e.wake(e.tip)
		}
		return accepted()

	default:
		e.register(seq, w)

		// Numbers that already have a waiter are already on their way;
		// only request the gaps nobody is waiting on.
		return held(e.appendUnwaited(nil, e.tip, seq))
	}
}
