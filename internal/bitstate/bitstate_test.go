package bitstate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycos-run/mycos/internal/bitstate"
)

func TestSetGetRoundTrip(t *testing.T) {
	b := bitstate.NewBuffer(40)
	b.Set(0, true)
	b.Set(31, true)
	b.Set(32, true)
	b.Set(39, true)

	require.True(t, b.Get(0))
	require.True(t, b.Get(31))
	require.True(t, b.Get(32))
	require.True(t, b.Get(39))
	require.False(t, b.Get(1))
	require.False(t, b.Get(38))
}

func TestSeedLeavesPrevZero(t *testing.T) {
	initial := []byte{0b0000_0101} // bits 0 and 2 set
	b := bitstate.NewBuffer(8)
	b.Seed(0, initial, 8)

	require.True(t, b.Get(0))
	require.False(t, b.Get(1))
	require.True(t, b.Get(2))
	require.False(t, b.GetPrev(0))
	require.False(t, b.GetPrev(2))
}

func TestWriteWordsThenReadWordsAfterCommit(t *testing.T) {
	b := bitstate.NewBuffer(40)
	b.WriteWords(0, 40, []uint32{0xDEADBEEF, 0xFF})
	b.CommitPrev()

	dst := make([]uint32, 2)
	b.ReadWords(0, 40, dst)
	require.Equal(t, uint32(0xDEADBEEF), dst[0])
	require.Equal(t, uint32(0xFF), dst[1])
}

func TestReadWordsReadsPrevNotCurr(t *testing.T) {
	b := bitstate.NewBuffer(32)
	b.WriteWords(0, 32, []uint32{0xFFFFFFFF})
	b.CommitPrev()
	b.WriteWords(0, 32, []uint32{0}) // mutate Curr only, Prev stays committed

	dst := make([]uint32, 1)
	b.ReadWords(0, 32, dst)
	require.Equal(t, uint32(0xFFFFFFFF), dst[0])
}

func TestSnapshotRestore(t *testing.T) {
	b := bitstate.NewBuffer(32)
	b.Set(5, true)
	snap := b.Snapshot()

	b.Set(5, false)
	require.False(t, b.Get(5))

	b.Restore(snap)
	require.True(t, b.Get(5))
}

func TestSectionsCommitAll(t *testing.T) {
	s := bitstate.NewSections(8, 8, 8)
	s.Input.Set(0, true)
	s.Internal.Set(1, true)
	s.Output.Set(2, true)

	require.False(t, s.Input.GetPrev(0))
	s.CommitAll()
	require.True(t, s.Input.GetPrev(0))
	require.True(t, s.Internal.GetPrev(1))
	require.True(t, s.Output.GetPrev(2))
}
