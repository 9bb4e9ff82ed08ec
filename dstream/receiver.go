package dstream

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/gordian-engine/dseq"
	"github.com/gordian-engine/dseq/dnack"
)

// DefaultMaxHeld is used when [ReceiverConfig.MaxHeld] is zero.
const DefaultMaxHeld = 1024

// DefaultNackLimit is used when [ReceiverConfig.NackLimit] is zero.
// It matches the span of a single NACK frame,
// so a held message far ahead of the tip costs at most one frame to request.
const DefaultNackLimit = dnack.MaxFrameSpan

// ReceiverConfig is the configuration for [NewReceiver].
type ReceiverConfig struct {
	Semantics  dseq.DeliverySemantics
	InitialTip uint64

	// Upper bound on each NACK list passed to Nacks.
	// Defaults to DefaultNackLimit.
	NackLimit int

	Peer     dseq.PeerID
	StreamID uint64

	// Messages for this stream, in wire arrival order.
	// The Receiver stops when the channel is closed.
	Inbound <-chan Inbound

	// Accepted messages are sent here, blocking until received.
	Deliveries chan<- Inbound

	// Optional. When set, NACK lists from held messages are sent here.
	Nacks NackRequester

	// Optional. When set, rejections are sent here without blocking;
	// a rejection is dropped if the channel is not ready.
	Rejections chan<- Rejection

	// Maximum number of parked messages.
	// Defaults to DefaultMaxHeld.
	MaxHeld int
}

func (c ReceiverConfig) validate() {
	var panicErrs error

	if !c.Semantics.Valid() {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("ReceiverConfig.Semantics must be a defined value"),
		)
	}
	if c.Inbound == nil {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("ReceiverConfig.Inbound must not be nil"),
		)
	}
	if c.Deliveries == nil {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("ReceiverConfig.Deliveries must not be nil"),
		)
	}
	if c.NackLimit < 0 {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("ReceiverConfig.NackLimit must not be negative"),
		)
	}
	if c.MaxHeld < 0 {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("ReceiverConfig.MaxHeld must not be negative"),
		)
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

// Receiver admits the messages of a single stream
// through its own engine, on its own goroutine.
type Receiver struct {
	log *slog.Logger

	e *dseq.Engine

	peer     dseq.PeerID
	streamID uint64

	inbound    <-chan Inbound
	deliveries chan<- Inbound
	nacks      NackRequester
	rejections chan<- Rejection

	maxHeld int

	// Only accessed from the main loop.
	held  map[uint64]Inbound
	woken []uint64

	accepted, holds, rejected, dropped atomic.Uint64

	done chan struct{}
}

// NewReceiver starts a Receiver in a background goroutine.
// The goroutine stops when ctx is canceled or cfg.Inbound is closed;
// use [*Receiver.Wait] to block until it has stopped.
//
// NewReceiver panics if cfg is invalid.
func NewReceiver(ctx context.Context, log *slog.Logger, cfg ReceiverConfig) *Receiver {
	cfg.validate()

	maxHeld := cfg.MaxHeld
	if maxHeld == 0 {
		maxHeld = DefaultMaxHeld
	}
	nackLimit := cfg.NackLimit
	if nackLimit == 0 {
		nackLimit = DefaultNackLimit
	}

	r := &Receiver{
		log: log,

		e: dseq.NewWithConfig(dseq.EngineConfig{
			Semantics:  cfg.Semantics,
			InitialTip: cfg.InitialTip,
			NackLimit:  nackLimit,
		}),

		peer:     cfg.Peer,
		streamID: cfg.StreamID,

		inbound:    cfg.Inbound,
		deliveries: cfg.Deliveries,
		nacks:      cfg.Nacks,
		rejections: cfg.Rejections,

		maxHeld: maxHeld,

		held: make(map[uint64]Inbound),

		done: make(chan struct{}),
	}

	go r.mainLoop(ctx)

	return r
}

func (r *Receiver) mainLoop(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			r.log.Info(
				"Stopping due to context cancellation",
				"cause", context.Cause(ctx),
			)
			return

		case in, ok := <-r.inbound:
			if !ok {
				r.log.Debug("Stopping due to inbound channel closed")
				return
			}

			if !r.handleInbound(ctx, in) {
				return
			}
		}
	}
}

// handleInbound admits in, then re-admits any parked messages
// whose wakers fired along the way.
// It returns false if the context was canceled.
func (r *Receiver) handleInbound(ctx context.Context, in Inbound) bool {
	if !r.admit(ctx, in) {
		return false
	}

	for len(r.woken) > 0 {
		seq := r.woken[0]
		r.woken = r.woken[1:]

		parked, ok := r.held[seq]
		if !ok {
			// The message was dropped at the held limit.
			// Waking is only a hint, so there is nothing to do.
			continue
		}
		delete(r.held, seq)

		if !r.admit(ctx, parked) {
			return false
		}
	}

	return true
}

func (r *Receiver) admit(ctx context.Context, in Inbound) bool {
	seq := in.Seq
	res := r.e.Admit(seq, r.peer, r.streamID, dseq.WakerFunc(func() {
		r.woken = append(r.woken, seq)
	}))

	switch res.Decision {
	case dseq.Accept:
		select {
		case <-ctx.Done():
			return false
		case r.deliveries <- in:
			r.accepted.Add(1)
			return true
		}

	case dseq.Hold:
		r.holds.Add(1)
		r.park(in)

		if len(res.Nack) > 0 && r.nacks != nil {
			if err := r.nacks.RequestRetransmit(ctx, r.peer, r.streamID, res.Nack); err != nil {
				r.log.Warn(
					"Failed to request retransmission",
					"seq", seq,
					"nack_count", len(res.Nack),
					"err", err,
				)
			}
		}
		return true

	case dseq.Reject:
		r.rejected.Add(1)

		r.log.Debug(
			"Rejected message",
			"seq", seq,
			"reason", res.Err.Kind,
			"tip", r.e.Tip(),
		)

		if r.rejections != nil {
			select {
			case r.rejections <- Rejection{Inbound: in, Err: *res.Err}:
			default:
			}
		}
		return true

	default:
		panic("BUG: unknown admit decision " + res.Decision.String())
	}
}

// park stores in until its waker fires.
// A later message with the same sequence number replaces the earlier one,
// matching the engine keeping only the latest waker.
func (r *Receiver) park(in Inbound) {
	if _, ok := r.held[in.Seq]; !ok && len(r.held) >= r.maxHeld {
		r.dropped.Add(1)
		r.log.Warn(
			"Dropping held message at limit",
			"seq", in.Seq,
			"max_held", r.maxHeld,
		)
		return
	}
	r.held[in.Seq] = in
}

// Stats returns a snapshot of r's counters.
// It is safe to call from any goroutine.
func (r *Receiver) Stats() Stats {
	return Stats{
		Accepted: r.accepted.Load(),
		Held:     r.holds.Load(),
		Rejected: r.rejected.Load(),
		Dropped:  r.dropped.Load(),
	}
}

// Wait blocks until r's goroutine has stopped.
func (r *Receiver) Wait() {
	<-r.done
}
