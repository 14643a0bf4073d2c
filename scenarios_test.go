package mycos_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycos-run/mycos"
	"github.com/mycos-run/mycos/chunkfmt"
	"github.com/mycos-run/mycos/mycostest"
)

func newEngine(t *testing.T, chunks [][]byte, links []byte) *mycos.Engine {
	t.Helper()
	e := mycos.NewEngine(mycos.DefaultConfig(), nil)
	require.NoError(t, e.LoadChunks(chunks))
	require.NoError(t, e.LoadLinks(links))
	return e
}

// TestTinyToggle: one chunk, one Input->Internal On/Enable connection and
// one Internal->Output On/Enable connection. Raising the input should take
// exactly two rounds to reach the output: round 1 fires Input's edge into
// Internal, round 2 fires Internal's resulting edge into Output.
func TestTinyToggle(t *testing.T) {
	chunk := mycostest.NewChunk(1, 1, 1).
		Connect(chunkfmt.SectionInput, 0, chunkfmt.SectionInternal, 0, chunkfmt.TriggerOn, chunkfmt.ActionEnable, 1).
		Connect(chunkfmt.SectionInternal, 0, chunkfmt.SectionOutput, 0, chunkfmt.TriggerOn, chunkfmt.ActionEnable, 1).
		Encode()

	e := newEngine(t, [][]byte{chunk}, nil)

	require.NoError(t, e.SetInputs(0, []uint32{1}))
	m, err := e.Tick(nil)
	require.NoError(t, err)

	require.Equal(t, uint32(2), m.Rounds)
	require.Equal(t, uint64(2), m.EffectsApplied)
	require.False(t, m.Oscillator)
	require.False(t, m.GuardTripped)

	out := make([]uint32, 1)
	require.NoError(t, e.GetOutputs(0, out))
	require.Equal(t, uint32(1), out[0]&1)
}

// TestNoop: a chunk with zero connections never produces a frontier
// member, regardless of input transitions, so a tick completes in zero
// rounds with zero effects.
func TestNoop(t *testing.T) {
	chunk := mycostest.NewChunk(1, 1, 1).Encode()
	e := newEngine(t, [][]byte{chunk}, nil)

	require.NoError(t, e.SetInputs(0, []uint32{1}))
	m, err := e.Tick(nil)
	require.NoError(t, err)

	require.Equal(t, uint32(0), m.Rounds)
	require.Equal(t, uint64(0), m.EffectsApplied)
}

// TestOscillator2Cycle: a single Internal bit wired to toggle itself forms
// a period-2 oscillator once kicked off by an input pulse (true, false,
// true, ...). The default freeze_last_stable policy should revert
// Internals to the round just before the repeat.
func TestOscillator2Cycle(t *testing.T) {
	chunk := mycostest.NewChunk(1, 1, 0).
		Connect(chunkfmt.SectionInput, 0, chunkfmt.SectionInternal, 0, chunkfmt.TriggerOn, chunkfmt.ActionToggle, 1).
		Connect(chunkfmt.SectionInternal, 0, chunkfmt.SectionInternal, 0, chunkfmt.TriggerToggle, chunkfmt.ActionToggle, 1).
		Encode()

	e := newEngine(t, [][]byte{chunk}, nil)

	require.NoError(t, e.SetInputs(0, []uint32{1}))
	m, err := e.Tick(nil)
	require.NoError(t, err)

	require.True(t, m.Oscillator)
	require.Equal(t, 2, m.Period)
	require.Equal(t, mycos.PolicyFreezeLastStable, m.Policy)
}

// TestFanout1To1024: a single Input bit fans out to 1024 distinct Internal
// bits in one chunk. All 1024 effects land in round 1.
func TestFanout1To1024(t *testing.T) {
	const n = 1024
	b := mycostest.NewChunk(1, n, 0)
	for i := uint32(0); i < n; i++ {
		b.Connect(chunkfmt.SectionInput, 0, chunkfmt.SectionInternal, i, chunkfmt.TriggerOn, chunkfmt.ActionEnable, i+1)
	}
	chunk := b.Encode()

	e := newEngine(t, [][]byte{chunk}, nil)
	require.NoError(t, e.SetInputs(0, []uint32{1}))
	m, err := e.Tick(nil)
	require.NoError(t, err)

	require.Equal(t, uint32(1), m.Rounds)
	require.Equal(t, uint64(n), m.EffectsApplied)
}

// TestResolveConflict: two Input sources fire into the same Internal bit
// in the same round with conflicting actions; resolution keeps only the
// higher order_tag's effect, collapsing two proposals into one winner.
func TestResolveConflict(t *testing.T) {
	chunk := mycostest.NewChunk(2, 1, 0).
		Connect(chunkfmt.SectionInput, 0, chunkfmt.SectionInternal, 0, chunkfmt.TriggerOn, chunkfmt.ActionEnable, 1).
		Connect(chunkfmt.SectionInput, 1, chunkfmt.SectionInternal, 0, chunkfmt.TriggerOn, chunkfmt.ActionDisable, 2).
		Encode()

	e := newEngine(t, [][]byte{chunk}, nil)
	require.NoError(t, e.SetInputs(0, []uint32{0b11}))
	m, err := e.Tick(nil)
	require.NoError(t, err)

	require.False(t, m.Oscillator)
	require.False(t, m.GuardTripped)
	require.Equal(t, uint32(1), m.Rounds)
	require.Equal(t, uint64(2), m.Proposals)
	require.Equal(t, uint64(1), m.Winners)
	require.Equal(t, uint64(1), m.EffectsApplied)
}

// TestCrossChunk: chunk A's Output links into chunk B's Input via the
// cross-chunk link table, in addition to each chunk's own intra-chunk
// connections. The full causal chain -- A.Input -> A.Internal -> A.Output
// -> (link) -> B.Input -> B.Internal -> B.Output -- settles within one
// tick.
func TestCrossChunk(t *testing.T) {
	a := mycostest.NewChunk(1, 1, 1).
		Connect(chunkfmt.SectionInput, 0, chunkfmt.SectionInternal, 0, chunkfmt.TriggerOn, chunkfmt.ActionEnable, 1).
		Connect(chunkfmt.SectionInternal, 0, chunkfmt.SectionOutput, 0, chunkfmt.TriggerOn, chunkfmt.ActionEnable, 1).
		Encode()
	b := mycostest.NewChunk(1, 1, 1).
		Connect(chunkfmt.SectionInput, 0, chunkfmt.SectionInternal, 0, chunkfmt.TriggerOn, chunkfmt.ActionEnable, 1).
		Connect(chunkfmt.SectionInternal, 0, chunkfmt.SectionOutput, 0, chunkfmt.TriggerOn, chunkfmt.ActionEnable, 1).
		Encode()

	links := mycostest.NewLinks().
		Add(0, 0, chunkfmt.TriggerOn, chunkfmt.ActionEnable, 1, 0, 1).
		Encode()

	e := newEngine(t, [][]byte{a, b}, links)
	require.NoError(t, e.SetInputs(0, []uint32{1}))

	m, err := e.Tick(nil)
	require.NoError(t, err)
	require.False(t, m.Oscillator)
	require.False(t, m.GuardTripped)
	require.Equal(t, uint32(5), m.Rounds)
	require.Equal(t, uint64(5), m.EffectsApplied)

	out := make([]uint32, 1)
	require.NoError(t, e.GetOutputs(1, out))
	require.Equal(t, uint32(1), out[0]&1)
}

// TestDeterministicReplay: running the same load set and input sequence
// twice from scratch produces byte-identical Metrics and output state.
func TestDeterministicReplay(t *testing.T) {
	build := func() *mycos.Engine {
		chunk := mycostest.NewChunk(2, 4, 2).
			Connect(chunkfmt.SectionInput, 0, chunkfmt.SectionInternal, 0, chunkfmt.TriggerOn, chunkfmt.ActionEnable, 1).
			Connect(chunkfmt.SectionInput, 1, chunkfmt.SectionInternal, 1, chunkfmt.TriggerOn, chunkfmt.ActionEnable, 1).
			Connect(chunkfmt.SectionInternal, 0, chunkfmt.SectionInternal, 2, chunkfmt.TriggerOn, chunkfmt.ActionToggle, 1).
			Connect(chunkfmt.SectionInternal, 1, chunkfmt.SectionInternal, 3, chunkfmt.TriggerOn, chunkfmt.ActionToggle, 1).
			Connect(chunkfmt.SectionInternal, 2, chunkfmt.SectionOutput, 0, chunkfmt.TriggerOn, chunkfmt.ActionEnable, 1).
			Connect(chunkfmt.SectionInternal, 3, chunkfmt.SectionOutput, 1, chunkfmt.TriggerOn, chunkfmt.ActionEnable, 1).
			Encode()
		return newEngine(t, [][]byte{chunk}, nil)
	}

	run := func() (mycos.Metrics, []uint32) {
		e := build()
		require.NoError(t, e.SetInputs(0, []uint32{0b11}))
		m, err := e.Tick(nil)
		require.NoError(t, err)
		out := make([]uint32, 1)
		require.NoError(t, e.GetOutputs(0, out))
		return m, out
	}

	m1, out1 := run()
	m2, out2 := run()
	require.Equal(t, m1, m2)
	require.Equal(t, out1, out2)
}
