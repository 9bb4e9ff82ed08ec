package dstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordian-engine/dseq"
)

// DefaultStreamBuffer is used when [DemuxConfig.StreamBuffer] is zero.
const DefaultStreamBuffer = 16

// DemuxConfig is the configuration for [NewDemux].
type DemuxConfig struct {
	// The peer on the other end of the connection.
	Peer dseq.PeerID

	// Every decoded message on the connection, for any stream.
	Inbound <-chan Inbound

	// Optional, shared by every stream. See [ReceiverConfig].
	Nacks      NackRequester
	Rejections chan<- Rejection

	// Passed to each stream's Receiver.
	// Must not be negative.
	MaxHeld int

	// Buffer size of the channel between the demux and each Receiver.
	// Defaults to DefaultStreamBuffer.
	StreamBuffer int
}

// StreamConfig describes a stream passed to [*Demux.OpenStream].
type StreamConfig struct {
	StreamID   uint64
	Semantics  dseq.DeliverySemantics
	InitialTip uint64

	// Defaults to DefaultNackLimit.
	NackLimit int

	// Accepted messages for this stream.
	Deliveries chan<- Inbound
}

// Demux routes connection-wide inbound messages
// to one [Receiver] per open stream.
//
// Routing to a stream blocks while that stream's buffer is full,
// which applies backpressure to the whole connection.
type Demux struct {
	log *slog.Logger

	cfg DemuxConfig

	openRequests  chan openStreamRequest
	closeRequests chan closeStreamRequest

	mainLoopDone chan struct{}

	// Tracks the per-stream receivers.
	wg sync.WaitGroup
}

type openStreamRequest struct {
	Cfg  StreamConfig
	Resp chan error
}

type closeStreamRequest struct {
	StreamID uint64
	Resp     chan error
}

// demuxStream is the main loop's view of an open stream.
type demuxStream struct {
	in     chan Inbound
	cancel context.CancelCauseFunc
}

var errStreamClosed = errors.New("stream closed")

// NewDemux starts a Demux in a background goroutine.
// It stops when ctx is canceled or cfg.Inbound is closed.
func NewDemux(ctx context.Context, log *slog.Logger, cfg DemuxConfig) *Demux {
	var panicErrs error
	if cfg.Inbound == nil {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("BUG: DemuxConfig.Inbound must not be nil"),
		)
	}
	if cfg.MaxHeld < 0 {
		panicErrs = errors.Join(
			panicErrs,
			fmt.Errorf("BUG: DemuxConfig.MaxHeld must not be negative (got %d)", cfg.MaxHeld),
		)
	}
	if cfg.StreamBuffer < 0 {
		panicErrs = errors.Join(
			panicErrs,
			fmt.Errorf("BUG: DemuxConfig.StreamBuffer must not be negative (got %d)", cfg.StreamBuffer),
		)
	}
	if panicErrs != nil {
		panic(panicErrs)
	}

	if cfg.StreamBuffer == 0 {
		cfg.StreamBuffer = DefaultStreamBuffer
	}

	d := &Demux{
		log: log,
		cfg: cfg,

		openRequests:  make(chan openStreamRequest),
		closeRequests: make(chan closeStreamRequest),

		mainLoopDone: make(chan struct{}),
	}

	go d.mainLoop(ctx)

	return d
}

func (d *Demux) mainLoop(ctx context.Context) {
	defer close(d.mainLoopDone)

	streams := make(map[uint64]demuxStream)
	defer func() {
		for _, s := range streams {
			close(s.in)
			s.cancel(errStreamClosed)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			d.log.Info(
				"Stopping due to context cancellation",
				"cause", context.Cause(ctx),
			)
			return

		case req := <-d.openRequests:
			req.Resp <- d.handleOpenStream(ctx, req.Cfg, streams)

		case req := <-d.closeRequests:
			s, ok := streams[req.StreamID]
			if !ok {
				req.Resp <- StreamNotOpenError{StreamID: req.StreamID}
				continue
			}
			delete(streams, req.StreamID)
			close(s.in)
			s.cancel(errStreamClosed)
			req.Resp <- nil

		case in, ok := <-d.cfg.Inbound:
			if !ok {
				d.log.Debug("Stopping due to inbound channel closed")
				return
			}

			s, ok := streams[in.StreamID]
			if !ok {
				d.log.Debug(
					"Dropping message for unopened stream",
					"stream_id", in.StreamID,
					"seq", in.Seq,
				)
				continue
			}

			select {
			case <-ctx.Done():
				return
			case s.in <- in:
				// Okay.
			}
		}
	}
}

func (d *Demux) handleOpenStream(
	ctx context.Context, cfg StreamConfig, streams map[uint64]demuxStream,
) error {
	if _, ok := streams[cfg.StreamID]; ok {
		return StreamAlreadyOpenError{StreamID: cfg.StreamID}
	}
	if !cfg.Semantics.Valid() {
		return dseq.UnknownSemanticsError{Byte: cfg.Semantics.Byte()}
	}
	if cfg.Deliveries == nil {
		return fmt.Errorf("stream %d: deliveries channel must not be nil", cfg.StreamID)
	}
	if cfg.NackLimit < 0 {
		return fmt.Errorf("stream %d: NACK limit must not be negative (got %d)", cfg.StreamID, cfg.NackLimit)
	}

	sctx, cancel := context.WithCancelCause(ctx)
	in := make(chan Inbound, d.cfg.StreamBuffer)

	r := NewReceiver(
		sctx,
		d.log.With("stream_id", cfg.StreamID, "sem", cfg.Semantics.String()),
		ReceiverConfig{
			Semantics:  cfg.Semantics,
			InitialTip: cfg.InitialTip,
			NackLimit:  cfg.NackLimit,

			Peer:     d.cfg.Peer,
			StreamID: cfg.StreamID,

			Inbound:    in,
			Deliveries: cfg.Deliveries,
			Nacks:      d.cfg.Nacks,
			Rejections: d.cfg.Rejections,

			MaxHeld: d.cfg.MaxHeld,
		},
	)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		r.Wait()
	}()

	streams[cfg.StreamID] = demuxStream{
		in:     in,
		cancel: cancel,
	}
	return nil
}

// OpenStream registers a new stream with the demux.
// Messages for the stream that arrived before OpenStream completed
// were already dropped.
func (d *Demux) OpenStream(ctx context.Context, cfg StreamConfig) error {
	resp := make(chan error, 1)
	select {
	case <-ctx.Done():
		return fmt.Errorf(
			"context canceled while making request to open stream: %w",
			context.Cause(ctx),
		)
	case <-d.mainLoopDone:
		return errors.New("demux stopped before opening stream")
	case d.openRequests <- openStreamRequest{Cfg: cfg, Resp: resp}:
		// Okay.
	}

	// The main loop always responds once it has accepted the request,
	// and resp is buffered.
	return <-resp
}

// CloseStream stops the stream's Receiver and forgets the stream.
// Later messages for the stream ID are dropped.
func (d *Demux) CloseStream(ctx context.Context, streamID uint64) error {
	resp := make(chan error, 1)
	select {
	case <-ctx.Done():
		return fmt.Errorf(
			"context canceled while making request to close stream: %w",
			context.Cause(ctx),
		)
	case <-d.mainLoopDone:
		return errors.New("demux stopped before closing stream")
	case d.closeRequests <- closeStreamRequest{StreamID: streamID, Resp: resp}:
		// Okay.
	}

	return <-resp
}

// Wait blocks until the demux and every stream it started have stopped.
func (d *Demux) Wait() {
	<-d.mainLoopDone
	d.wg.Wait()
}
