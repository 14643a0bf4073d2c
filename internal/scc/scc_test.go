package scc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycos-run/mycos/internal/scc"
)

func TestSelfLoopIsItsOwnComponent(t *testing.T) {
	g := scc.NewGraph(1)
	g.AddEdge(0, 0)

	info := scc.Analyze(g)
	require.Len(t, info.Components, 1)
	require.Equal(t, []int32{0}, info.ComponentOf)
	require.ElementsMatch(t, []int32{0}, info.Components[0])
}

func TestDisjointBitsAreSeparateComponents(t *testing.T) {
	g := scc.NewGraph(3)
	info := scc.Analyze(g)

	require.Len(t, info.Components, 3)
	require.Equal(t, int32(0), info.ComponentOf[0])
	require.Equal(t, int32(1), info.ComponentOf[1])
	require.Equal(t, int32(2), info.ComponentOf[2])
}

func TestThreeCycleIsOneComponent(t *testing.T) {
	g := scc.NewGraph(3)
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(2, 0)

	info := scc.Analyze(g)
	require.Len(t, info.Components, 1)
	require.ElementsMatch(t, []int32{0, 1, 2}, info.Components[0])
	require.Equal(t, info.ComponentOf[0], info.ComponentOf[1])
	require.Equal(t, info.ComponentOf[1], info.ComponentOf[2])
}

func TestCycleWithTailComponentSizes(t *testing.T) {
	// 0<->1 form a cycle; 1->2 is a tail with no cycle back.
	g := scc.NewGraph(3)
	g.AddEdge(0, 1)
	g.AddEdge(1, 0)
	g.AddEdge(1, 2)

	info := scc.Analyze(g)
	require.Len(t, info.Components, 2)

	cycleComp := info.ComponentOf[0]
	require.Equal(t, cycleComp, info.ComponentOf[1])
	require.Len(t, info.Components[cycleComp], 2)

	tailComp := info.ComponentOf[2]
	require.NotEqual(t, cycleComp, tailComp)
	require.Len(t, info.Components[tailComp], 1)
}
