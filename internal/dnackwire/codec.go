// Package dnackwire encodes the bitsets carried in NACK frames.
//
// The receiver always knows the bitset length in advance
// (the frame header carries it),
// so only the words are encoded.
// Each encoding begins with one header byte naming the format.
package dnackwire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/golang/snappy"
)

const (
	rawEncoding    byte = 0
	snappyEncoding byte = 1
)

// Encoder chooses between raw words and snappy-compressed words,
// whichever is smaller.
// An Encoder reuses its buffers and must not be used concurrently.
type Encoder struct {
	// The little endian bytes of the bitset's words.
	wordBuf []byte

	// Snappy encoding of wordBuf.
	encBuf []byte
}

// AppendBitset appends the encoding of bs to dst
// and returns the extended slice.
func (e *Encoder) AppendBitset(dst []byte, bs *bitset.BitSet) []byte {
	words := bs.Words()
	nBytes := 8 * len(words)

	if cap(e.wordBuf) < nBytes {
		e.wordBuf = make([]byte, nBytes)
	} else {
		e.wordBuf = e.wordBuf[:nBytes]
	}
	for i, w := range words {
		// We use big endian in most encodings for human readability,
		// but in this case we use little endian
		// since it is more likely to match a modern machine's endianness.
		binary.LittleEndian.PutUint64(e.wordBuf[i*8:], w)
	}

	maxEnc := snappy.MaxEncodedLen(nBytes)
	if cap(e.encBuf) < maxEnc {
		e.encBuf = make([]byte, maxEnc)
	} else {
		e.encBuf = e.encBuf[:maxEnc]
	}
	enc := snappy.Encode(e.encBuf, e.wordBuf)

	// Snappy costs two extra bytes for its length,
	// since the remote cannot know the encoded size up front.
	if len(enc)+2 >= nBytes || len(enc) > math.MaxUint16 {
		dst = append(dst, rawEncoding)
		return append(dst, e.wordBuf...)
	}

	dst = append(dst, snappyEncoding)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(enc)))
	return append(dst, enc...)
}

// Decoder is the counterpart to [Encoder].
// A Decoder reuses its buffers and must not be used concurrently.
type Decoder struct {
	encBuf  []byte
	wordBuf []byte
}

// ReadBitset reads one encoded bitset from r into bs.
// The length of bs must already match the encoded bitset;
// only its words are overwritten.
func (d *Decoder) ReadBitset(r io.Reader, bs *bitset.BitSet) error {
	var h [1]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return fmt.Errorf("failed to read bitset encoding header: %w", err)
	}

	words := bs.Words()
	nBytes := 8 * len(words)

	switch h[0] {
	case rawEncoding:
		if cap(d.wordBuf) < nBytes {
			d.wordBuf = make([]byte, nBytes)
		} else {
			d.wordBuf = d.wordBuf[:nBytes]
		}
		if _, err := io.ReadFull(r, d.wordBuf); err != nil {
			return fmt.Errorf("failed to read raw bitset data: %w", err)
		}

	case snappyEncoding:
		var szBuf [2]byte
		if _, err := io.ReadFull(r, szBuf[:]); err != nil {
			return fmt.Errorf("failed to read snappy length for bitset: %w", err)
		}
		encSz := int(binary.BigEndian.Uint16(szBuf[:]))
		if encSz > snappy.MaxEncodedLen(nBytes) {
			return fmt.Errorf(
				"snappy bitset length %d exceeds maximum %d for %d words",
				encSz, snappy.MaxEncodedLen(nBytes), len(words),
			)
		}

		if cap(d.encBuf) < encSz {
			d.encBuf = make([]byte, encSz)
		} else {
			d.encBuf = d.encBuf[:encSz]
		}
		if _, err := io.ReadFull(r, d.encBuf); err != nil {
			return fmt.Errorf("failed to read snappy-encoded bitset: %w", err)
		}

		decSz, err := snappy.DecodedLen(d.encBuf)
		if err != nil {
			return fmt.Errorf("failed to calculate snappy-decoded bitset length: %w", err)
		}
		if decSz != nBytes {
			return fmt.Errorf(
				"calculated decoded size of %d bytes but expected %d",
				decSz, nBytes,
			)
		}

		wb, err := snappy.Decode(d.wordBuf[:cap(d.wordBuf)], d.encBuf)
		if err != nil {
			return fmt.Errorf("failed to decode snappy bitset: %w", err)
		}

		// wb could have been nil on error;
		// that's why we used the temporary variable.
		d.wordBuf = wb

	default:
		return fmt.Errorf("unknown bitset encoding header byte 0x%x", h[0])
	}

	for i := range words {
		words[i] = binary.LittleEndian.Uint64(d.wordBuf[i*8:])
	}
	return nil
}
