// Package mycostest provides small builders for constructing synthetic
// chunk and link fixtures in tests, without hand-packing binary records.
package mycostest

import (
	"sort"

	"github.com/mycos-run/mycos/chunkfmt"
)

// ConnSpec describes one connection to add to a chunk under construction.
type ConnSpec struct {
	FromSection chunkfmt.Section
	FromIndex   uint32
	ToSection   chunkfmt.Section
	ToIndex     uint32
	Trigger     chunkfmt.Trigger
	Action      chunkfmt.Action
	OrderTag    uint32
}

// ChunkBuilder accumulates bit counts, initial values, and connections for
// one chunk.
type ChunkBuilder struct {
	ni, nn, no uint32
	inputs     []byte
	internals  []byte
	outputs    []byte
	conns      []chunkfmt.Connection
}

// NewChunk starts a builder for a chunk with ni Input, nn Internal, and no
// Output bits, all initially zero.
func NewChunk(ni, nn, no uint32) *ChunkBuilder {
	return &ChunkBuilder{
		ni: ni, nn: nn, no: no,
		inputs:    make([]byte, byteLen(ni)),
		internals: make([]byte, byteLen(nn)),
		outputs:   make([]byte, byteLen(no)),
	}
}

func byteLen(bits uint32) int { return int((bits + 7) / 8) }

// SetInitialInput sets an initial Input bit, applied before the first tick.
func (b *ChunkBuilder) SetInitialInput(i uint32, v bool) *ChunkBuilder {
	chunkfmt.SetBit(b.inputs, i, v)
	return b
}

// SetInitialInternal sets an initial Internal bit.
func (b *ChunkBuilder) SetInitialInternal(i uint32, v bool) *ChunkBuilder {
	chunkfmt.SetBit(b.internals, i, v)
	return b
}

// SetInitialOutput sets an initial Output bit.
func (b *ChunkBuilder) SetInitialOutput(i uint32, v bool) *ChunkBuilder {
	chunkfmt.SetBit(b.outputs, i, v)
	return b
}

// Connect adds one connection. Order within a chunk does not matter here:
// Build sorts connections into the wire format's required order.
func (b *ChunkBuilder) Connect(from chunkfmt.Section, fromIdx uint32, to chunkfmt.Section, toIdx uint32, trig chunkfmt.Trigger, act chunkfmt.Action, orderTag uint32) *ChunkBuilder {
	b.conns = append(b.conns, chunkfmt.Connection{
		FromSection: from, FromIndex: fromIdx,
		ToSection: to, ToIndex: toIdx,
		Trigger: trig, Action: act, OrderTag: orderTag,
	})
	return b
}

// Build sorts connections by (from_section, from_index) and returns the
// assembled *chunkfmt.Chunk.
func (b *ChunkBuilder) Build() *chunkfmt.Chunk {
	conns := make([]chunkfmt.Connection, len(b.conns))
	copy(conns, b.conns)
	sort.SliceStable(conns, func(i, j int) bool {
		if conns[i].FromSection != conns[j].FromSection {
			return conns[i].FromSection < conns[j].FromSection
		}
		if conns[i].FromIndex != conns[j].FromIndex {
			return conns[i].FromIndex < conns[j].FromIndex
		}
		return conns[i].OrderTag < conns[j].OrderTag
	})
	return &chunkfmt.Chunk{
		Ni: b.ni, Nn: b.nn, No: b.no,
		Inputs: b.inputs, Internals: b.internals, Outputs: b.outputs,
		Connections: conns,
	}
}

// Encode is a convenience for Build followed by chunkfmt.Encode.
func (b *ChunkBuilder) Encode() []byte {
	return chunkfmt.Encode(b.Build())
}

// LinkBuilder accumulates cross-chunk links.
type LinkBuilder struct {
	links []chunkfmt.Link
}

// NewLinks starts an empty link table builder.
func NewLinks() *LinkBuilder {
	return &LinkBuilder{}
}

// Add adds one Output->Input link.
func (b *LinkBuilder) Add(fromChunk, fromOutIdx uint32, trig chunkfmt.Trigger, act chunkfmt.Action, toChunk, toInIdx, orderTag uint32) *LinkBuilder {
	b.links = append(b.links, chunkfmt.Link{
		FromChunk: fromChunk, FromOutIdx: fromOutIdx,
		Trigger: trig, Action: act,
		ToChunk: toChunk, ToInIdx: toInIdx, OrderTag: orderTag,
	})
	return b
}

// Build sorts links by (from_chunk, from_out_idx, order_tag) and returns
// them.
func (b *LinkBuilder) Build() []chunkfmt.Link {
	links := make([]chunkfmt.Link, len(b.links))
	copy(links, b.links)
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].FromChunk != links[j].FromChunk {
			return links[i].FromChunk < links[j].FromChunk
		}
		if links[i].FromOutIdx != links[j].FromOutIdx {
			return links[i].FromOutIdx < links[j].FromOutIdx
		}
		return links[i].OrderTag < links[j].OrderTag
	})
	return links
}

// Encode is a convenience for Build followed by chunkfmt.EncodeLinks.
func (b *LinkBuilder) Encode() []byte {
	return chunkfmt.EncodeLinks(b.Build())
}
