package dnack

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/dseq"
	"github.com/gordian-engine/dseq/dquic"
	"github.com/gordian-engine/dseq/internal/dnackwire"
)

// MaxFrameSpan is the largest distance,
// from the lowest to the highest sequence number plus one,
// that a single frame may describe.
// Longer requests are split across frames.
const MaxFrameSpan = 4096

// DefaultWriteTimeout is used when [RequesterConfig.WriteTimeout] is zero.
const DefaultWriteTimeout = 250 * time.Millisecond

// RequesterConfig is the configuration for [NewRequester].
type RequesterConfig struct {
	// The stream frames are written to.
	// The Requester owns the stream from this point on.
	Stream dquic.SendStream

	// Deadline applied to each request's write.
	// Defaults to DefaultWriteTimeout.
	WriteTimeout time.Duration
}

// Requester writes NACK frames to a single send stream.
// It is safe for concurrent use,
// so one Requester may be shared by every stream on a connection.
type Requester struct {
	log *slog.Logger

	writeTimeout time.Duration

	mu  sync.Mutex
	s   dquic.SendStream
	enc dnackwire.Encoder
	buf []byte
}

// NewRequester returns a Requester writing to cfg.Stream.
func NewRequester(log *slog.Logger, cfg RequesterConfig) *Requester {
	if cfg.Stream == nil {
		panic(fmt.Errorf("BUG: RequesterConfig.Stream must not be nil"))
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}

	return &Requester{
		log:          log,
		writeTimeout: timeout,
		s:            cfg.Stream,
	}
}

// OpenRequester opens a new unidirectional stream on conn,
// writes the single protocolID byte identifying the stream to the peer,
// and returns a Requester for it.
func OpenRequester(
	ctx context.Context,
	log *slog.Logger,
	conn dquic.Conn,
	protocolID byte,
	writeTimeout time.Duration,
) (*Requester, error) {
	s, err := conn.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open NACK stream: %w", err)
	}

	r := NewRequester(log.With("remote", conn.RemoteAddr().String()), RequesterConfig{
		Stream:       s,
		WriteTimeout: writeTimeout,
	})

	if err := r.write(ctx, []byte{protocolID}); err != nil {
		s.CancelWrite(0)
		return nil, fmt.Errorf(
			"failed to write NACK stream header to %s: %w", conn.RemoteAddr(), err,
		)
	}

	return r, nil
}

// RequestRetransmit asks the peer to resend every sequence number in seqs
// for the given stream.
// The slice is not retained, and may be in any order or contain repeats.
//
// The peer argument is only used for logging;
// the stream is already bound to one peer.
func (r *Requester) RequestRetransmit(
	ctx context.Context,
	peer dseq.PeerID,
	streamID uint64,
	seqs []uint64,
) error {
	if len(seqs) == 0 {
		return nil
	}

	sorted := slices.Clone(seqs)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = r.buf[:0]
	nFrames := 0
	for len(sorted) > 0 {
		base := sorted[0]
		n := 1
		for n < len(sorted) && sorted[n]-base < MaxFrameSpan {
			n++
		}

		r.buf = r.appendFrame(r.buf, streamID, base, sorted[:n])
		nFrames++
		sorted = sorted[n:]
	}

	if err := r.write(ctx, r.buf); err != nil {
		return fmt.Errorf(
			"failed to write NACK for stream %d to peer %s: %w",
			streamID, peer, err,
		)
	}

	r.log.Debug(
		"Requested retransmission",
		"peer", peer,
		"stream_id", streamID,
		"count", len(seqs),
		"frames", nFrames,
	)

	return nil
}

// appendFrame appends a single frame covering seqs,
// which must be sorted, unique, and span less than MaxFrameSpan from base.
func (r *Requester) appendFrame(dst []byte, streamID, base uint64, seqs []uint64) []byte {
	bitCount := uint(seqs[len(seqs)-1]-base) + 1

	bs := bitset.New(bitCount)
	for _, s := range seqs {
		bs.Set(uint(s - base))
	}

	dst = binary.AppendUvarint(dst, streamID)
	dst = binary.AppendUvarint(dst, base)
	dst = binary.AppendUvarint(dst, uint64(bitCount))
	return r.enc.AppendBitset(dst, bs)
}

// write writes b in full, bounded by the write timeout
// and by any earlier context deadline.
func (r *Requester) write(ctx context.Context, b []byte) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}

	deadline := time.Now().Add(r.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := r.s.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if _, err := r.s.Write(b); err != nil {
		return err
	}
	return nil
}

// Close closes the underlying send stream.
func (r *Requester) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s.Close()
}
