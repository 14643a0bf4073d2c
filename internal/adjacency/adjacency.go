// Package adjacency lowers a chunk's connection table and the cross-chunk
// link table into CSR-by-trigger tables keyed by global source bit, per
// the three trigger kinds On, Off, Toggle.
package adjacency

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/mycos-run/mycos/chunkfmt"
	"github.com/mycos-run/mycos/internal/layout"
)

// Effect is one proposal template: a target bit, its resolver order tag,
// and the action to apply if it wins resolution.
type Effect struct {
	ToBit    uint32
	OrderTag uint32
	Action   chunkfmt.Action
}

const numTriggers = 3

// CSR holds, for each trigger kind, a prefix-sum offset table over the
// full global bit index space and the flattened effect array it indexes
// into.
type CSR struct {
	Offs    [numTriggers][]uint32
	Effects [numTriggers][]Effect
}

// Fanout returns the outgoing effect slice for bit under trigger t.
func (c *CSR) Fanout(t chunkfmt.Trigger, bit uint32) []Effect {
	offs := c.Offs[t]
	return c.Effects[t][offs[bit]:offs[bit+1]]
}

// HasFanout reports whether bit has at least one outgoing effect under
// trigger t. Source bits with no outgoing edges can never produce a
// proposal, so the Executor excludes them from the frontier entirely.
func (c *CSR) HasFanout(t chunkfmt.Trigger, bit uint32) bool {
	offs := c.Offs[t]
	return offs[bit+1] > offs[bit]
}

// MaxProposalsPerRound is a conservative upper bound on the number of
// proposals a single round can produce: the sum of all effects across all
// three trigger kinds (a bit can appear in at most one of On/Off and also
// in Toggle the same round, never in both On and Off).
func (c *CSR) MaxProposalsPerRound() int {
	total := 0
	for t := 0; t < numTriggers; t++ {
		total += len(c.Effects[t])
	}
	return total
}

type sourceEffect struct {
	source uint32
	eff    Effect
}

// Build lowers chunks' connection tables and the link table into CSR.
func Build(chunks []*chunkfmt.Chunk, links []chunkfmt.Link, lo *layout.Layout) (*CSR, error) {
	total := lo.Total()
	buckets := [numTriggers][]sourceEffect{}

	for ci, c := range chunks {
		for _, conn := range c.Connections {
			src := lowerSource(lo, ci, conn.FromSection, conn.FromIndex)
			dst := lowerTarget(lo, ci, conn.ToSection, conn.ToIndex)
			buckets[conn.Trigger] = append(buckets[conn.Trigger], sourceEffect{
				source: src,
				eff:    Effect{ToBit: dst, OrderTag: conn.OrderTag, Action: conn.Action},
			})
		}
	}
	for _, l := range links {
		if int(l.FromChunk) >= len(chunks) || int(l.ToChunk) >= len(chunks) {
			return nil, errors.Errorf("link references out-of-range chunk (from=%d, to=%d, loaded=%d)", l.FromChunk, l.ToChunk, len(chunks))
		}
		if l.FromOutIdx >= chunks[l.FromChunk].No {
			return nil, errors.Errorf("link from_out_idx %d out of range for chunk %d", l.FromOutIdx, l.FromChunk)
		}
		if l.ToInIdx >= chunks[l.ToChunk].Ni {
			return nil, errors.Errorf("link to_in_idx %d out of range for chunk %d", l.ToInIdx, l.ToChunk)
		}
		src := lo.GlobalOutput(int(l.FromChunk), l.FromOutIdx)
		dst := lo.GlobalInput(int(l.ToChunk), l.ToInIdx)
		buckets[l.Trigger] = append(buckets[l.Trigger], sourceEffect{
			source: src,
			eff:    Effect{ToBit: dst, OrderTag: l.OrderTag, Action: l.Action},
		})
	}

	csr := &CSR{}
	for t := 0; t < numTriggers; t++ {
		entries := buckets[t]
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if a.source != b.source {
				return a.source < b.source
			}
			aw, bw := a.eff.ToBit>>5, b.eff.ToBit>>5
			if aw != bw {
				return aw < bw
			}
			return a.eff.OrderTag < b.eff.OrderTag
		})

		if err := checkDistinctOrderTags(entries); err != nil {
			return nil, errors.Wrapf(err, "trigger %s", chunkfmt.Trigger(t))
		}

		offs := make([]uint32, total+1)
		effects := make([]Effect, len(entries))
		for i, e := range entries {
			offs[e.source+1]++
			effects[i] = e.eff
		}
		for i := uint32(0); i < total; i++ {
			offs[i+1] += offs[i]
		}
		csr.Offs[t] = offs
		csr.Effects[t] = effects
	}
	return csr, nil
}

// checkDistinctOrderTags enforces the Adjacency Builder contract: for any
// two distinct connections/links sharing the same target bit and trigger,
// their order_tag values must be strictly distinct. Entries are sorted by
// source here, not by to_bit, so a separate copy is sorted by (to_bit,
// order_tag) to do the grouping.
func checkDistinctOrderTags(entries []sourceEffect) error {
	byTarget := make([]sourceEffect, len(entries))
	copy(byTarget, entries)
	sort.Slice(byTarget, func(i, j int) bool {
		if byTarget[i].eff.ToBit != byTarget[j].eff.ToBit {
			return byTarget[i].eff.ToBit < byTarget[j].eff.ToBit
		}
		return byTarget[i].eff.OrderTag < byTarget[j].eff.OrderTag
	})
	for i := 1; i < len(byTarget); i++ {
		if byTarget[i].eff.ToBit == byTarget[i-1].eff.ToBit && byTarget[i].eff.OrderTag == byTarget[i-1].eff.OrderTag {
			return errors.Errorf("duplicate order_tag %d for target bit %d", byTarget[i].eff.OrderTag, byTarget[i].eff.ToBit)
		}
	}
	return nil
}

func lowerSource(lo *layout.Layout, chunk int, sec chunkfmt.Section, idx uint32) uint32 {
	if sec == chunkfmt.SectionInput {
		return lo.GlobalInput(chunk, idx)
	}
	return lo.GlobalInternal(chunk, idx)
}

func lowerTarget(lo *layout.Layout, chunk int, sec chunkfmt.Section, idx uint32) uint32 {
	if sec == chunkfmt.SectionInternal {
		return lo.GlobalInternal(chunk, idx)
	}
	return lo.GlobalOutput(chunk, idx)
}
