package dnackwire_test

import (
	"bytes"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/dseq/internal/dnackwire"
	"github.com/gordian-engine/dseq/internal/dtest"
	"github.com/stretchr/testify/require"
)

func TestCodec_roundTrip(t *testing.T) {
	t.Parallel()

	rng := dtest.RandForTest(t)

	var enc dnackwire.Encoder
	var dec dnackwire.Decoder

	var buf []byte
	for range 300 {
		sz := 1 + rng.UintN(4096)
		bs := bitset.New(sz)

		// Vary the density so both encodings get exercised.
		setCount := rng.UintN(sz + 1)
		if rng.IntN(2) == 0 {
			setCount = rng.UintN(4)
		}
		for range setCount {
			bs.Set(rng.UintN(sz))
		}

		buf = enc.AppendBitset(buf[:0], bs)

		got := bitset.New(sz)
		require.NoError(t, dec.ReadBitset(bytes.NewReader(buf), got))
		require.Truef(
			t,
			bs.Equal(got),
			"sent: %s\nrcvd: %s", bs, got,
		)
	}
}

func TestEncoder_sparseIsCompressed(t *testing.T) {
	t.Parallel()

	bs := bitset.New(4096)
	bs.Set(17)
	bs.Set(4000)

	var enc dnackwire.Encoder
	out := enc.AppendBitset(nil, bs)

	// Raw would be one header byte plus 512 bytes of words.
	require.Less(t, len(out), 100)
}

func TestEncoder_appendsToExisting(t *testing.T) {
	t.Parallel()

	bs := bitset.New(64)
	bs.Set(3)

	var enc dnackwire.Encoder
	out := enc.AppendBitset([]byte("prefix"), bs)
	require.True(t, bytes.HasPrefix(out, []byte("prefix")))

	var dec dnackwire.Decoder
	got := bitset.New(64)
	require.NoError(t, dec.ReadBitset(bytes.NewReader(out[len("prefix"):]), got))
	require.True(t, got.Test(3))
	require.Equal(t, uint(1), got.Count())
}

func TestDecoder_errors(t *testing.T) {
	t.Parallel()

	var dec dnackwire.Decoder

	t.Run("unknown header", func(t *testing.T) {
		err := dec.ReadBitset(bytes.NewReader([]byte{9}), bitset.New(64))
		require.ErrorContains(t, err, "unknown bitset encoding")
	})

	t.Run("truncated raw", func(t *testing.T) {
		err := dec.ReadBitset(bytes.NewReader([]byte{0, 1, 2}), bitset.New(64))
		require.Error(t, err)
	})

	t.Run("wrong decoded size", func(t *testing.T) {
		bs := bitset.New(4096)
		bs.Set(1)

		var enc dnackwire.Encoder
		out := enc.AppendBitset(nil, bs)

		// Decoding into a smaller bitset must fail rather than truncate.
		err := dec.ReadBitset(bytes.NewReader(out), bitset.New(64))
		require.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		err := dec.ReadBitset(bytes.NewReader(nil), bitset.New(64))
		require.Error(t, err)
	})
}
