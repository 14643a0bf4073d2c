package adjacency_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycos-run/mycos/chunkfmt"
	"github.com/mycos-run/mycos/internal/adjacency"
	"github.com/mycos-run/mycos/internal/layout"
)

func TestBuildLowersConnectionToGlobalBits(t *testing.T) {
	chunks := []*chunkfmt.Chunk{{
		Ni: 1, Nn: 1, No: 0,
		Connections: []chunkfmt.Connection{
			{FromSection: chunkfmt.SectionInput, FromIndex: 0, ToSection: chunkfmt.SectionInternal, ToIndex: 0, Trigger: chunkfmt.TriggerOn, Action: chunkfmt.ActionEnable, OrderTag: 1},
		},
	}}
	lo := layout.Build(chunks)

	csr, err := adjacency.Build(chunks, nil, lo)
	require.NoError(t, err)

	srcInput := lo.GlobalInput(0, 0)
	require.True(t, csr.HasFanout(chunkfmt.TriggerOn, srcInput))
	fo := csr.Fanout(chunkfmt.TriggerOn, srcInput)
	require.Len(t, fo, 1)
	require.Equal(t, lo.GlobalInternal(0, 0), fo[0].ToBit)
	require.Equal(t, chunkfmt.ActionEnable, fo[0].Action)

	require.False(t, csr.HasFanout(chunkfmt.TriggerOff, srcInput))
	require.False(t, csr.HasFanout(chunkfmt.TriggerToggle, srcInput))
}

func TestBuildLowersLinkToInputTarget(t *testing.T) {
	chunks := []*chunkfmt.Chunk{
		{Ni: 1, Nn: 0, No: 1},
		{Ni: 1, Nn: 0, No: 0},
	}
	links := []chunkfmt.Link{
		{FromChunk: 0, FromOutIdx: 0, Trigger: chunkfmt.TriggerOn, Action: chunkfmt.ActionEnable, ToChunk: 1, ToInIdx: 0, OrderTag: 1},
	}
	lo := layout.Build(chunks)

	csr, err := adjacency.Build(chunks, links, lo)
	require.NoError(t, err)

	src := lo.GlobalOutput(0, 0)
	require.True(t, csr.HasFanout(chunkfmt.TriggerOn, src))
	fo := csr.Fanout(chunkfmt.TriggerOn, src)
	require.Len(t, fo, 1)
	require.Equal(t, lo.GlobalInput(1, 0), fo[0].ToBit)
}

func TestBuildRejectsOutOfRangeLinkChunk(t *testing.T) {
	chunks := []*chunkfmt.Chunk{{Ni: 1, Nn: 0, No: 1}}
	links := []chunkfmt.Link{
		{FromChunk: 0, FromOutIdx: 0, Trigger: chunkfmt.TriggerOn, Action: chunkfmt.ActionEnable, ToChunk: 5, ToInIdx: 0, OrderTag: 1},
	}
	lo := layout.Build(chunks)

	_, err := adjacency.Build(chunks, links, lo)
	require.Error(t, err)
}

func TestBuildRejectsDuplicateOrderTagForSameTarget(t *testing.T) {
	chunks := []*chunkfmt.Chunk{{
		Ni: 2, Nn: 1, No: 0,
		Connections: []chunkfmt.Connection{
			{FromSection: chunkfmt.SectionInput, FromIndex: 0, ToSection: chunkfmt.SectionInternal, ToIndex: 0, Trigger: chunkfmt.TriggerOn, Action: chunkfmt.ActionEnable, OrderTag: 1},
			{FromSection: chunkfmt.SectionInput, FromIndex: 1, ToSection: chunkfmt.SectionInternal, ToIndex: 0, Trigger: chunkfmt.TriggerOn, Action: chunkfmt.ActionDisable, OrderTag: 1},
		},
	}}
	lo := layout.Build(chunks)

	_, err := adjacency.Build(chunks, nil, lo)
	require.Error(t, err)
}

func TestMaxProposalsPerRoundSumsAllTriggers(t *testing.T) {
	chunks := []*chunkfmt.Chunk{{
		Ni: 1, Nn: 2, No: 0,
		Connections: []chunkfmt.Connection{
			{FromSection: chunkfmt.SectionInput, FromIndex: 0, ToSection: chunkfmt.SectionInternal, ToIndex: 0, Trigger: chunkfmt.TriggerOn, Action: chunkfmt.ActionEnable, OrderTag: 1},
			{FromSection: chunkfmt.SectionInput, FromIndex: 0, ToSection: chunkfmt.SectionInternal, ToIndex: 1, Trigger: chunkfmt.TriggerOff, Action: chunkfmt.ActionDisable, OrderTag: 1},
		},
	}}
	lo := layout.Build(chunks)

	csr, err := adjacency.Build(chunks, nil, lo)
	require.NoError(t, err)
	require.Equal(t, 2, csr.MaxProposalsPerRound())
}
