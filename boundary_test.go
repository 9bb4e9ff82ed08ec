package dseq_test

import (
	"math"
	"testing"

	"github.com/gordian-engine/dseq"
	"github.com/gordian-engine/dseq/dseqtest"
	"github.com/stretchr/testify/require"
)

func TestEngine_maxSequenceExhaustsStream(t *testing.T) {
	t.Parallel()

	for _, sem := range allSemantics {
		t.Run(sem.String(), func(t *testing.T) {
			t.Parallel()

			e := dseq.NewWithConfig(dseq.EngineConfig{
				Semantics:  sem,
				InitialTip: math.MaxUint64 - 1,
			})

			require.Equal(t, dseq.Accept, e.Admit(math.MaxUint64-1, testPeer, 1, nil).Decision)
			require.Equal(t, uint64(math.MaxUint64), e.Tip())
			require.False(t, e.Exhausted())

			require.Equal(t, dseq.Accept, e.Admit(math.MaxUint64, testPeer, 1, nil).Decision)
			require.Equal(t, uint64(math.MaxUint64), e.Tip())
			require.True(t, e.Exhausted())

			// Nothing is ever accepted again, including the tip wrapping back to zero.
			for _, seq := range []uint64{math.MaxUint64, math.MaxUint64 - 1, 0, 5} {
				res := e.Admit(seq, testPeer, 1, dseqtest.NewWaker("late"))
				require.Equal(t, dseq.Reject, res.Decision, "seq %d", seq)
				require.ErrorIs(t, res.Err, dseq.ErrStale)
			}
			require.Equal(t, uint64(math.MaxUint64), e.Tip())
			require.Zero(t, e.PendingLen())
		})
	}
}

func TestEngine_jumpToMaxSequence(t *testing.T) {
	t.Parallel()

	for _, sem := range []dseq.DeliverySemantics{
		dseq.UnreliableOrdered,
		dseq.UnreliableUnordered,
		dseq.LastMessageReliable,
	} {
		t.Run(sem.String(), func(t *testing.T) {
			t.Parallel()

			e := dseq.New(sem)
			require.Equal(t, dseq.Accept, e.Admit(100, testPeer, 1, nil).Decision)
			require.Equal(t, uint64(101), e.Tip())

			require.Equal(t, dseq.Accept, e.Admit(math.MaxUint64, testPeer, 1, nil).Decision)
			require.Equal(t, uint64(math.MaxUint64), e.Tip())
			require.Zero(t, e.SeenMask())

			res := e.Admit(5, testPeer, 1, nil)
			require.Equal(t, dseq.Reject, res.Decision)
			require.ErrorIs(t, res.Err, dseq.ErrStale)
		})
	}
}

func TestReliableOrdered_releasesMaxSequence(t *testing.T) {
	t.Parallel()

	e := dseq.NewWithConfig(dseq.EngineConfig{
		Semantics:  dseq.ReliableOrdered,
		InitialTip: math.MaxUint64 - 2,
	})

	wMax := dseqtest.NewWaker("max")
	res := e.Admit(math.MaxUint64, testPeer, 1, wMax)
	require.Equal(t, dseq.Hold, res.Decision)
	require.Equal(t, []uint64{math.MaxUint64 - 2, math.MaxUint64 - 1}, res.Nack)

	require.Equal(t, dseq.Accept, e.Admit(math.MaxUint64-2, testPeer, 1, nil).Decision)
	require.Equal(t, dseq.Accept, e.Admit(math.MaxUint64-1, testPeer, 1, nil).Decision)
	require.Equal(t, 1, wMax.Wakes)

	require.Equal(t, dseq.Accept, e.Admit(math.MaxUint64, testPeer, 1, nil).Decision)
	require.True(t, e.Exhausted())
	require.Zero(t, e.PendingLen())
}

func TestReliableUnordered_wakesMaxSequenceEnteringWindow(t *testing.T) {
	t.Parallel()

	const start = math.MaxUint64 - 70
	e := dseq.NewWithConfig(dseq.EngineConfig{
		Semantics:  dseq.ReliableUnordered,
		InitialTip: start,
		NackLimit:  3,
	})

	wMax := dseqtest.NewWaker("max")
	res := e.Admit(math.MaxUint64, testPeer, 1, wMax)
	require.Equal(t, dseq.Hold, res.Decision)
	require.Equal(t, []uint64{start, start + 1, start + 2}, res.Nack)

	// The top of the window reaches math.MaxUint64 once the tip is 63 below it.
	for seq := uint64(start); seq < math.MaxUint64-63; seq++ {
		require.False(t, wMax.Woken(), "woken before seq %d", seq)
		require.Equal(t, dseq.Accept, e.Admit(seq, testPeer, 1, nil).Decision)
	}
	require.Equal(t, 1, wMax.Wakes)
	require.Equal(t, uint64(math.MaxUint64-63), e.Tip())

	require.Equal(t, dseq.Accept, e.Admit(math.MaxUint64, testPeer, 1, nil).Decision)
	require.Equal(t, uint64(1)<<63, e.SeenMask())
	require.False(t, e.Exhausted())
}
