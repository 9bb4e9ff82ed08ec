package dseq_test

import (
	"errors"
	"testing"

	"github.com/gordian-engine/dseq"
	"github.com/stretchr/testify/require"
)

var allSemantics = []dseq.DeliverySemantics{
	dseq.ReliableOrdered,
	dseq.ReliableUnordered,
	dseq.UnreliableOrdered,
	dseq.UnreliableUnordered,
	dseq.LastMessageReliable,
}

func TestEngine_Kind_roundTrip(t *testing.T) {
	t.Parallel()

	for _, k := range allSemantics {
		t.Run(k.String(), func(t *testing.T) {
			t.Parallel()

			require.Equal(t, k, dseq.New(k).Kind())

			got, err := dseq.ParseDeliverySemantics(dseq.New(k).Kind().Byte())
			require.NoError(t, err)
			require.Equal(t, k, got)
		})
	}
}

func TestParseDeliverySemantics_unknown(t *testing.T) {
	t.Parallel()

	for _, b := range []byte{0, 6, 0xff} {
		_, err := dseq.ParseDeliverySemantics(b)
		require.Error(t, err)

		var ue dseq.UnknownSemanticsError
		require.True(t, errors.As(err, &ue))
		require.Equal(t, b, ue.Byte)
	}
}

func TestDeliverySemantics_text(t *testing.T) {
	t.Parallel()

	for _, k := range allSemantics {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var got dseq.DeliverySemantics
		require.NoError(t, got.UnmarshalText(text))
		require.Equal(t, k, got)
	}

	var s dseq.DeliverySemantics
	require.Error(t, s.UnmarshalText([]byte("reliable-sometimes")))
	require.Error(t, s.UnmarshalText([]byte("invalid")))

	_, err := dseq.DeliverySemantics(0).MarshalText()
	require.Error(t, err)
}

func TestDeliverySemantics_classification(t *testing.T) {
	t.Parallel()

	require.True(t, dseq.ReliableOrdered.IsReliable())
	require.True(t, dseq.ReliableUnordered.IsReliable())
	require.False(t, dseq.UnreliableOrdered.IsReliable())
	require.False(t, dseq.UnreliableUnordered.IsReliable())

	// Despite the name, latest-wins never holds or retries.
	require.False(t, dseq.LastMessageReliable.IsReliable())

	require.True(t, dseq.ReliableUnordered.IsWindowed())
	require.True(t, dseq.UnreliableUnordered.IsWindowed())
	require.False(t, dseq.ReliableOrdered.IsWindowed())
}

func TestNew_panicsOnInvalidSemantics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		dseq.New(0)
	})
	require.Panics(t, func() {
		dseq.New(dseq.DeliverySemantics(6))
	})
	require.Panics(t, func() {
		dseq.NewWithConfig(dseq.EngineConfig{
			Semantics: dseq.ReliableOrdered,
			NackLimit: -1,
		})
	})
}
