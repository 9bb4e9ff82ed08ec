package dreplay_test

import (
	"testing"

	"github.com/gordian-engine/dseq"
	"github.com/gordian-engine/dseq/internal/dreplay"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	s, err := dreplay.Parse([]byte(`
name: basic
semantics: reliable-unordered
initial_tip: 5
nack_limit: 8
steps: [7, 5, 6]
`))
	require.NoError(t, err)

	require.Equal(t, "basic", s.Name)
	require.Equal(t, dseq.ReliableUnordered, s.Semantics)
	require.Equal(t, uint64(5), s.InitialTip)
	require.Equal(t, 8, s.NackLimit)
	require.Equal(t, []uint64{7, 5, 6}, s.Steps)
}

func TestParse_errors(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		in      string
		wantErr string
	}{
		{
			name:    "unknown field",
			in:      "name: x\nsemantics: reliable-ordered\nsteps: [0]\nsemantic: oops\n",
			wantErr: "semantic",
		},
		{
			name:    "unknown semantics",
			in:      "name: x\nsemantics: best-effort\nsteps: [0]\n",
			wantErr: "best-effort",
		},
		{
			name:    "missing semantics",
			in:      "name: x\nsteps: [0]\n",
			wantErr: "semantics must be set",
		},
		{
			name:    "no steps",
			in:      "name: x\nsemantics: reliable-ordered\n",
			wantErr: "steps must not be empty",
		},
		{
			name:    "negative limit",
			in:      "name: x\nsemantics: reliable-ordered\nnack_limit: -1\nsteps: [0]\n",
			wantErr: "nack_limit must not be negative",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := dreplay.Parse([]byte(tc.in))
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestScenario_Validate_joinsErrors(t *testing.T) {
	t.Parallel()

	err := dreplay.Scenario{}.Validate()
	require.ErrorContains(t, err, "name must not be empty")
	require.ErrorContains(t, err, "semantics must be set")
	require.ErrorContains(t, err, "steps must not be empty")
}

func TestLoad_missingFile(t *testing.T) {
	t.Parallel()

	_, err := dreplay.Load("testdata/scenarios/does-not-exist.yaml")
	require.ErrorContains(t, err, "failed to read scenario")
}
