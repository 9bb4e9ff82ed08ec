package dseq

import (
	"errors"
	"fmt"
	"math"
)

// windowSize is the span of sequence numbers, starting at the tip,
// tracked by the seen mask of the windowed semantics.
const windowSize = 64

// EngineConfig is the configuration for [NewWithConfig].
type EngineConfig struct {
	Semantics DeliverySemantics

	// The first expected sequence number.
	// Zero for streams that start at the beginning;
	// a stream joined partway through may start elsewhere.
	InitialTip uint64

	// Upper bound on the number of entries in a single NACK list.
	// The lowest missing sequence numbers are kept.
	// Zero means no limit.
	NackLimit int
}

func (c EngineConfig) validate() {
	var panicErrs error

	if !c.Semantics.Valid() {
		panicErrs = errors.Join(
			panicErrs,
			fmt.Errorf("BUG: EngineConfig.Semantics must be a defined value (got %d)", uint8(c.Semantics)),
		)
	}

	if c.NackLimit < 0 {
		panicErrs = errors.Join(
			panicErrs,
			fmt.Errorf("BUG: EngineConfig.NackLimit must not be negative (got %d)", c.NackLimit),
		)
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

// Engine is the ordering and admission state for a single stream.
//
// The fields in use depend on the semantics:
// every mode has a tip;
// the two unordered modes also have a seen mask;
// the two reliable modes also have the pending wakers.
// Fields a mode does not use stay at their zero value.
//
// An Engine is not safe for concurrent use.
// Exactly one goroutine may call Admit at a time.
type Engine struct {
	sem DeliverySemantics

	// Lowest sequence number not yet accepted.
	// Never decreases.
	tip uint64

	// Set once math.MaxUint64 itself has been accepted.
	// The tip then stays at math.MaxUint64 and every later message is stale.
	exhausted bool

	// Bit i records whether tip+i has already been accepted.
	seen uint64

	// Wakers for callers held on a particular sequence number.
	// At most one per sequence number; a later registration replaces an earlier one.
	pending map[uint64]Waker

	nackLimit int
}

// New returns an Engine for the given semantics, starting at tip zero.
// It panics if sem is not a defined value.
func New(sem DeliverySemantics) *Engine {
	return NewWithConfig(EngineConfig{Semantics: sem})
}

// NewWithConfig returns an Engine configured by cfg.
// It panics if cfg is invalid.
func NewWithConfig(cfg EngineConfig) *Engine {
	cfg.validate()

	e := &Engine{
		sem:       cfg.Semantics,
		tip:       cfg.InitialTip,
		nackLimit: cfg.NackLimit,
	}
	if cfg.Semantics.IsReliable() {
		e.pending = make(map[uint64]Waker)
	}
	return e
}

// Admit decides whether the message with sequence number seq
// may be delivered now.
//
// The peer and streamID values are only used
// to populate the error on a rejected result.
//
// If the result is [Hold], w has been registered
// and will be woken when the gap blocking seq may have closed.
// w is ignored for any other result,
// and is never retained by the unreliable semantics.
func (e *Engine) Admit(seq uint64, peer PeerID, streamID uint64, w Waker) AdmitResult {
	if e.exhausted {
		return rejected(Stale, peer, streamID, seq)
	}

	switch e.sem {
	case ReliableOrdered:
		return e.admitReliableOrdered(seq, peer, streamID, w)
	case ReliableUnordered:
		return e.admitReliableUnordered(seq, peer, streamID, w)
	case UnreliableOrdered, LastMessageReliable:
		return e.admitLatest(seq, peer, streamID)
	case UnreliableUnordered:
		return e.admitUnreliableUnordered(seq, peer, streamID)
	default:
		panic(fmt.Errorf("BUG: engine has invalid semantics %d", uint8(e.sem)))
	}
}

// Kind returns the semantics e was created with.
// New(k).Kind() == k for every defined k.
func (e *Engine) Kind() DeliverySemantics {
	return e.sem
}

// Tip returns the lowest sequence number not yet accepted.
// Once the stream is exhausted, Tip stays at math.MaxUint64.
func (e *Engine) Tip() uint64 {
	return e.tip
}

// Exhausted reports whether math.MaxUint64 has been accepted,
// after which no further sequence number can be.
func (e *Engine) Exhausted() bool {
	return e.exhausted
}

// SeenMask returns the window bitmap for the unordered semantics,
// where bit i corresponds to sequence number Tip()+i.
// It is always zero for the ordered semantics.
func (e *Engine) SeenMask() uint64 {
	return e.seen
}

// PendingLen reports how many held callers are registered.
// The engine imposes no bound on this value.
func (e *Engine) PendingLen() int {
	return len(e.pending)
}

// advancePast moves the tip to seq+1,
// or marks the stream exhausted instead of wrapping to zero.
func (e *Engine) advancePast(seq uint64) {
	if seq == math.MaxUint64 {
		e.tip = seq
		e.exhausted = true
		return
	}
	e.tip = seq + 1
}

// register stores w as the waker for seq,
// replacing any waker already registered for seq.
func (e *Engine) register(seq uint64, w Waker) {
	e.pending[seq] = w
}

// wake invokes and removes the waker registered for seq, if any.
func (e *Engine) wake(seq uint64) {
	w, ok := e.pending[seq]
	if !ok {
		return
	}
	delete(e.pending, seq)
	if w != nil {
		w.Wake()
	}
}

// full reports whether nack has reached the configured limit.
func (e *Engine) full(nack []uint64) bool {
	return e.nackLimit > 0 && len(nack) >= e.nackLimit
}

// appendUnwaited appends every sequence number in [lo, hi)
// that has no registered waker, stopping at the NACK limit.
func (e *Engine) appendUnwaited(nack []uint64, lo, hi uint64) []uint64 {
	for s := lo; s < hi; s++ {
		if e.full(nack) {
			break
		}
		if _, ok := e.pending[s]; ok {
			continue
		}
		nack = append(nack, s)
	}
	return nack
}
