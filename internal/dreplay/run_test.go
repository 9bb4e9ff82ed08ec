package dreplay_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gordian-engine/dseq"
	"github.com/gordian-engine/dseq/internal/dreplay"
	"github.com/gordian-engine/dseq/internal/dtest"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func TestRun_golden(t *testing.T) {
	t.Parallel()

	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, err := dreplay.Load(path)
			require.NoError(t, err)

			tr := dreplay.Run(dtest.NewLogger(t), s)

			var buf bytes.Buffer
			require.NoError(t, dreplay.WriteText(&buf, tr))

			g := goldie.New(t,
				goldie.WithFixtureDir("testdata/golden"),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, name, buf.Bytes())
		})
	}
}

func TestRun_cascadingWakes(t *testing.T) {
	t.Parallel()

	s := &dreplay.Scenario{
		Name:      "tail",
		Semantics: dseq.ReliableOrdered,
		Steps:     []uint64{1, 2, 0},
	}

	tr := dreplay.Run(dtest.NewLogger(t), s)

	// 0 wakes 1, and accepting 1 wakes 2.
	require.Len(t, tr.Events, 5)
	require.Equal(t, []uint64{1}, tr.Events[2].Woke)
	require.Equal(t, dreplay.EventReadmit, tr.Events[3].Kind)
	require.Equal(t, []uint64{2}, tr.Events[3].Woke)
	require.Equal(t, uint64(3), tr.Events[4].Tip)
	require.Empty(t, tr.Held)
}

func TestTrace_json(t *testing.T) {
	t.Parallel()

	s := &dreplay.Scenario{
		Name:      "json",
		Semantics: dseq.UnreliableUnordered,
		Steps:     []uint64{1, 1},
	}

	tr := dreplay.Run(dtest.NewLogger(t), s)

	b, err := json.Marshal(tr)
	require.NoError(t, err)

	var got struct {
		Semantics string
		Events    []struct {
			Decision string
			Reason   string
			SeenMask uint64 `json:"seen_mask"`
		}
	}
	require.NoError(t, json.Unmarshal(b, &got))

	require.Equal(t, "unreliable-unordered", got.Semantics)
	require.Len(t, got.Events, 2)
	require.Equal(t, "accept", got.Events[0].Decision)
	require.Equal(t, uint64(2), got.Events[0].SeenMask)
	require.Equal(t, "reject", got.Events[1].Decision)
	require.Equal(t, "duplicate", got.Events[1].Reason)
}
