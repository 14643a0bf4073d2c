package cyclehash_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycos-run/mycos/internal/cyclehash"
)

func TestComputeDeterministic(t *testing.T) {
	words := []uint32{1, 2, 3, 4}
	require.Equal(t, cyclehash.Compute(words), cyclehash.Compute(words))
}

func TestComputeDistinguishesInputs(t *testing.T) {
	require.NotEqual(t,
		cyclehash.Compute([]uint32{1, 2, 3}),
		cyclehash.Compute([]uint32{1, 2, 4}),
	)
}

func TestComputeDistinguishesLength(t *testing.T) {
	// Appending a trailing zero word changes the length mix even though
	// the meaningful bits are identical.
	require.NotEqual(t,
		cyclehash.Compute([]uint32{1, 2}),
		cyclehash.Compute([]uint32{1, 2, 0}),
	)
}

func TestRingDetectsRepeat(t *testing.T) {
	r := cyclehash.NewRing(8)

	a := cyclehash.Compute([]uint32{1})
	b := cyclehash.Compute([]uint32{2})

	matched, _, _ := r.Observe(a, []uint32{1})
	require.False(t, matched)
	matched, _, _ = r.Observe(b, []uint32{2})
	require.False(t, matched)

	matched, matchIdx, period := r.Observe(a, []uint32{1})
	require.True(t, matched)
	require.Equal(t, 0, matchIdx)
	require.Equal(t, 2, period)
}

func TestRingNoMatchBeyondCapacity(t *testing.T) {
	r := cyclehash.NewRing(2)

	a := cyclehash.Compute([]uint32{1})
	b := cyclehash.Compute([]uint32{2})
	c := cyclehash.Compute([]uint32{3})

	r.Observe(a, []uint32{1})
	r.Observe(b, []uint32{2})
	r.Observe(c, []uint32{3}) // overwrites a's slot
	matched, _, _ := r.Observe(a, []uint32{1})
	require.False(t, matched)
}

func TestSnapshotBeforeReturnsRoundBeforeTheMostRecentOne(t *testing.T) {
	// SnapshotBefore is meant to be read right after Observe reports a
	// repeat: the most recently observed snapshot is the repeating round
	// itself, so "last stable" is the one recorded just before it.
	r := cyclehash.NewRing(4)
	r.Observe(cyclehash.Compute([]uint32{1}), []uint32{10})
	r.Observe(cyclehash.Compute([]uint32{2}), []uint32{20})

	require.Equal(t, []uint32{10}, r.SnapshotBefore())
}

func TestResetClearsRing(t *testing.T) {
	r := cyclehash.NewRing(4)
	h := cyclehash.Compute([]uint32{1})
	r.Observe(h, []uint32{1})
	r.Reset()

	matched, _, _ := r.Observe(h, []uint32{1})
	require.False(t, matched)
}
