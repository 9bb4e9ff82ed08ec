package dseq

// Waker is the handle the engine stores for a caller whose message was held.
//
// The engine calls Wake at most once per registration,
// from inside a later [*Engine.Admit] call on the same goroutine.
// A wake is only a hint that the held message may now be admissible.
// A registration may also be silently discarded,
// if another caller registers for the same sequence number.
type Waker interface {
	Wake()
}

// WakerFunc adapts a plain function to the [Waker] interface.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

// ReadySignal is a [Waker] whose Ready channel is closed on wake.
// It suits callers that park one goroutine per held message.
//
// Waking a ReadySignal more than once has no further effect.
type ReadySignal struct {
	Ready chan struct{}
}

// NewReadySignal returns an initialized, unfired ReadySignal.
func NewReadySignal() *ReadySignal {
	return &ReadySignal{
		Ready: make(chan struct{}),
	}
}

func (s *ReadySignal) Wake() {
	select {
	case <-s.Ready:
		// Already fired.
	default:
		close(s.Ready)
	}
}
