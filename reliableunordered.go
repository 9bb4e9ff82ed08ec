package dseq

import "math"

// admitReliableUnordered accepts anything inside the window exactly once,
// and holds anything beyond the window
// until the tip advances far enough to bring it inside.
func (e *Engine) admitReliableUnordered(
	seq uint64, peer PeerID, streamID uint64, w Waker,
) AdmitResult {
	switch {
	case seq < e.tip:
		return rejected(Stale, peer, streamID, seq)

	case seq == e.tip:
		res := e.admitTip(peer, streamID)

		// The advance brought one new number into the top of the window.
		// Near math.MaxUint64 there is no new number.
		if e.tip <= math.MaxUint64-(windowSize-1) {
			e.wake(e.tip + windowSize - 1)
		}
		return res

	case seq-e.tip < windowSize:
		return e.admitInWindow(seq, peer, streamID)

	default:
		e.register(seq, w)

		nack := e.appendMissingInWindow(nil)
		nack = e.appendUnwaited(nack, e.tip+windowSize, seq)
		return held(nack)
	}
}
