package dnack

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/dseq/dquic"
	"github.com/gordian-engine/dseq/internal/dnackwire"
)

// Frame is a decoded retransmission request.
type Frame struct {
	StreamID uint64

	// Requested sequence numbers, ascending.
	Seqs []uint64
}

// Reader decodes frames written by a [Requester].
// A Reader buffers reads from its stream,
// so the stream must not be read through any other path.
type Reader struct {
	s   dquic.ReceiveStream
	br  *bufio.Reader
	dec dnackwire.Decoder
}

// NewReader returns a Reader for s.
// Any stream header has already been consumed.
func NewReader(s dquic.ReceiveStream) *Reader {
	return &Reader{
		s:  s,
		br: bufio.NewReader(s),
	}
}

// AcceptReader accepts the next unidirectional stream on conn,
// checks that its header byte is protocolID,
// and returns a Reader for the rest of the stream.
func AcceptReader(
	ctx context.Context,
	conn dquic.Conn,
	protocolID byte,
	timeout time.Duration,
) (*Reader, error) {
	s, err := conn.AcceptUniStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to accept NACK stream: %w", err)
	}

	r := NewReader(s)
	if err := r.setDeadline(timeout); err != nil {
		return nil, err
	}

	h, err := r.br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("failed to read NACK stream header: %w", err)
	}
	if h != protocolID {
		s.CancelRead(0)
		return nil, fmt.Errorf(
			"unexpected NACK stream header 0x%x from %s (want 0x%x)",
			h, conn.RemoteAddr(), protocolID,
		)
	}

	return r, nil
}

// ReadFrame blocks until one complete frame has been read.
// A non-positive timeout means no deadline.
//
// io.EOF is returned unwrapped if the stream ended cleanly between frames.
func (r *Reader) ReadFrame(timeout time.Duration) (Frame, error) {
	if err := r.setDeadline(timeout); err != nil {
		return Frame{}, err
	}

	streamID, err := binary.ReadUvarint(r.br)
	if err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("failed to read NACK stream ID: %w", err)
	}

	base, err := binary.ReadUvarint(r.br)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read NACK base sequence: %w", unexpectedEOF(err))
	}

	bitCount, err := binary.ReadUvarint(r.br)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read NACK bit count: %w", unexpectedEOF(err))
	}
	if bitCount == 0 || bitCount > MaxFrameSpan {
		return Frame{}, fmt.Errorf(
			"NACK bit count %d out of range [1, %d]", bitCount, MaxFrameSpan,
		)
	}

	bs := bitset.New(uint(bitCount))
	if err := r.dec.ReadBitset(r.br, bs); err != nil {
		return Frame{}, fmt.Errorf("failed to read NACK bitset: %w", unexpectedEOF(err))
	}

	// The decoder fills whole words, so the last word may carry bits
	// past the declared count.
	if i, ok := bs.NextSet(uint(bitCount)); ok {
		return Frame{}, fmt.Errorf(
			"NACK bitset has bit %d set beyond bit count %d", i, bitCount,
		)
	}

	f := Frame{
		StreamID: streamID,
		Seqs:     make([]uint64, 0, bs.Count()),
	}
	for i, ok := bs.NextSet(0); ok; i, ok = bs.NextSet(i + 1) {
		f.Seqs = append(f.Seqs, base+uint64(i))
	}
	return f, nil
}

func (r *Reader) setDeadline(timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := r.s.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set read deadline for NACK stream: %w", err)
	}
	return nil
}

// unexpectedEOF converts a clean EOF in the middle of a frame
// into io.ErrUnexpectedEOF.
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
