// Package wavefront implements the per-tick round loop: edge detection,
// CSR-based expansion, last-writer-wins resolution, commit, next-frontier
// construction, and cycle detection with quench policies.
package wavefront

import (
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mycos-run/mycos/chunkfmt"
	"github.com/mycos-run/mycos/internal/adjacency"
	"github.com/mycos-run/mycos/internal/bitstate"
	"github.com/mycos-run/mycos/internal/cyclehash"
	"github.com/mycos-run/mycos/internal/layout"
	"github.com/mycos-run/mycos/internal/scc"
)

// Policy names a quench policy applied when a cycle is detected.
type Policy uint8

const (
	PolicyFreezeLastStable Policy = iota
	PolicyClampCommutative
	PolicyParityQuench
)

func (p Policy) String() string {
	switch p {
	case PolicyFreezeLastStable:
		return "freeze_last_stable"
	case PolicyClampCommutative:
		return "clamp_commutative"
	case PolicyParityQuench:
		return "parity_quench"
	default:
		return "policy(invalid)"
	}
}

// Metrics is the per-tick result the Executor reports.
type Metrics struct {
	Rounds         uint32
	EffectsApplied uint64
	Proposals      uint64
	Winners        uint64
	Oscillator     bool
	Period         int
	Policy         Policy
	GuardTripped   bool
}

// Config bounds a tick's round loop.
type Config struct {
	MaxRounds   uint32
	MaxEffects  uint64
	CycleWindow int

	// ProposalCapacity, if non-zero, overrides the CSR's computed
	// worst-case per-round proposal count for scratch sizing. A caller
	// that knows its load set's real fan-out is much smaller than the
	// worst case can use this to avoid over-allocating; undersizing it
	// surfaces as ErrCapacityExceeded at tick time, same as any other
	// capacity overrun.
	ProposalCapacity int
}

// ErrCapacityExceeded is returned when a round's proposal count would
// exceed the scratch buffer sized at load time.
var ErrCapacityExceeded = errors.New("wavefront: proposal capacity exceeded")

// Proposal is a candidate bit mutation emitted by expansion.
type Proposal struct {
	ToBit    uint32
	OrderTag uint32
	Action   chunkfmt.Action
}

// Winner is the survivor of resolution for a target bit.
type Winner struct {
	ToBit  uint32
	Action chunkfmt.Action
}

// Executor owns the hot-loop scratch buffers and drives one tick at a time
// over a shared CSR, layout, and state.
type Executor struct {
	csr    *adjacency.CSR
	layout *layout.Layout
	state  *bitstate.Sections
	ring   *cyclehash.Ring
	scc    *scc.Info
	policy Policy
	cfg    Config

	proposals []Proposal
	winners   []Winner

	frontier [3][]uint32 // index by chunkfmt.Trigger: On, Off, Toggle

	winnersRing    [][]Winner
	winnersRingCap int
}

// New builds an Executor with scratch sized from the CSR's worst-case
// fan-out and the layout's total bit count.
func New(csr *adjacency.CSR, lo *layout.Layout, state *bitstate.Sections, policy Policy, cfg Config) *Executor {
	if cfg.CycleWindow < 1 {
		cfg.CycleWindow = 8
	}
	proposalCap := csr.MaxProposalsPerRound()
	if cfg.ProposalCapacity > 0 {
		proposalCap = cfg.ProposalCapacity
	}
	total := int(lo.Total())
	return &Executor{
		csr:    csr,
		layout: lo,
		state:  state,
		ring:   cyclehash.NewRing(cfg.CycleWindow),
		policy: policy,
		cfg:    cfg,

		proposals: make([]Proposal, proposalCap),
		winners:   make([]Winner, total),

		frontier: [3][]uint32{
			make([]uint32, 0, total),
			make([]uint32, 0, total),
			make([]uint32, 0, total),
		},

		winnersRing:    make([][]Winner, cfg.CycleWindow),
		winnersRingCap: cfg.CycleWindow,
	}
}

// SetSCC wires in an optional SCC analysis (component membership only; no
// topological levels) of the Internal->Internal subgraph for quench
// policies to consult.
func (e *Executor) SetSCC(info *scc.Info) { e.scc = info }

// SetPolicy changes the active quench policy.
func (e *Executor) SetPolicy(p Policy) { e.policy = p }

// detectSection scans one section's Prev/Curr words and appends global bit
// indices that rose, fell, or flipped into dst[0], dst[1], dst[2]
// respectively. Bits with no outgoing CSR edge under the relevant trigger
// are skipped: they can never produce a proposal.
func (e *Executor) detectSection(buf *bitstate.Buffer, baseGlobal uint32, dst *[3][]uint32) {
	n := len(buf.Curr)
	for w := 0; w < n; w++ {
		curr, prev := buf.Curr[w], buf.Prev[w]
		flips := curr ^ prev
		if flips == 0 {
			continue
		}
		rises, falls := flips&curr, flips&prev
		base := baseGlobal + uint32(w)*32
		for b := uint32(0); b < 32; b++ {
			localBit := uint32(w)*32 + b
			if localBit >= buf.NumBits {
				break
			}
			mask := uint32(1) << b
			if flips&mask == 0 {
				continue
			}
			global := base + b
			if rises&mask != 0 && e.csr.HasFanout(chunkfmt.TriggerOn, global) {
				dst[chunkfmt.TriggerOn] = append(dst[chunkfmt.TriggerOn], global)
			}
			if falls&mask != 0 && e.csr.HasFanout(chunkfmt.TriggerOff, global) {
				dst[chunkfmt.TriggerOff] = append(dst[chunkfmt.TriggerOff], global)
			}
			if e.csr.HasFanout(chunkfmt.TriggerToggle, global) {
				dst[chunkfmt.TriggerToggle] = append(dst[chunkfmt.TriggerToggle], global)
			}
		}
	}
}

func (e *Executor) resetFrontier() {
	for k := range e.frontier {
		e.frontier[k] = e.frontier[k][:0]
	}
}

func frontierEmpty(f [3][]uint32) bool {
	return len(f[0]) == 0 && len(f[1]) == 0 && len(f[2]) == 0
}

// detectInitial computes the frontier that seeds round 1 of a tick, by
// diffing all three sections (Input, Internal, Output) against their Prev
// snapshot. The three sections are independent, so they are scanned
// concurrently, then merged in fixed section order (Input, Internal,
// Output) to preserve the "scan by increasing global bit index" ordering
// guarantee.
func (e *Executor) detectInitial() {
	e.resetFrontier()
	var perSection [3][3][]uint32
	var g errgroup.Group
	g.Go(func() error {
		e.detectSection(&e.state.Input, 0, &perSection[0])
		return nil
	})
	g.Go(func() error {
		e.detectSection(&e.state.Internal, e.layout.InternalStart(), &perSection[1])
		return nil
	})
	g.Go(func() error {
		e.detectSection(&e.state.Output, e.layout.OutputStart(), &perSection[2])
		return nil
	})
	_ = g.Wait()
	for k := 0; k < 3; k++ {
		for s := 0; s < 3; s++ {
			e.frontier[k] = append(e.frontier[k], perSection[s][k]...)
		}
	}
}

// detectNext computes the frontier for round r+1 by diffing all three
// sections against their Prev snapshot, which stays pinned to its
// pre-round value until commitSettled runs at the end of this round: a bit
// committed earlier in the same tick keeps firing into later rounds until
// that commit happens. All three sections participate (not just
// Internal), because a winner can land on any of them: an Internal->Output
// connection's target needs to go on propagating to a cross-chunk link
// sourced from that Output bit, and that link's target is the receiving
// chunk's Input bit, which in turn needs to go on propagating to that
// chunk's own Input->Internal connections, all potentially within the
// same tick. The cycle hash in Tick stays Internal-only regardless, and
// only probes the ring on rounds where commit actually changed an
// Internal bit: under the admissibility rules only the Internal->Internal
// subgraph can form a genuine cycle, and a round that left Internal
// untouched would otherwise rehash an unchanged snapshot and report a
// trivial self-match.
func (e *Executor) detectNext() {
	e.resetFrontier()
	e.detectSection(&e.state.Input, 0, &e.frontier)
	e.detectSection(&e.state.Internal, e.layout.InternalStart(), &e.frontier)
	e.detectSection(&e.state.Output, e.layout.OutputStart(), &e.frontier)
}

// commitSettled advances Prev to Curr for all three sections, so a bit's
// flip is only ever reported by detectNext once.
func (e *Executor) commitSettled() {
	e.state.Input.CommitPrev()
	e.state.Internal.CommitPrev()
	e.state.Output.CommitPrev()
}

// expand runs the two-pass CSR expansion: pass A sizes each trigger kind's
// region of the proposal buffer, pass B fills it. The three trigger kinds
// write disjoint regions and run concurrently.
func (e *Executor) expand() (int, error) {
	var counts [3]int
	for k := 0; k < 3; k++ {
		c := 0
		for _, s := range e.frontier[k] {
			c += len(e.csr.Fanout(chunkfmt.Trigger(k), s))
		}
		counts[k] = c
	}
	total := counts[0] + counts[1] + counts[2]
	if total > len(e.proposals) {
		return 0, ErrCapacityExceeded
	}
	offsets := [3]int{0, counts[0], counts[0] + counts[1]}

	var g errgroup.Group
	for k := 0; k < 3; k++ {
		k := k
		g.Go(func() error {
			pos := offsets[k]
			for _, s := range e.frontier[k] {
				for _, eff := range e.csr.Fanout(chunkfmt.Trigger(k), s) {
					e.proposals[pos] = Proposal{ToBit: eff.ToBit, OrderTag: eff.OrderTag, Action: eff.Action}
					pos++
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return total, nil
}

// resolve stably sorts proposals[:n] by (to_bit, order_tag) and sweeps runs
// of equal to_bit, keeping the highest order_tag (last in the sorted run)
// as the winner.
func (e *Executor) resolve(n int) int {
	props := e.proposals[:n]
	sort.SliceStable(props, func(i, j int) bool {
		if props[i].ToBit != props[j].ToBit {
			return props[i].ToBit < props[j].ToBit
		}
		return props[i].OrderTag < props[j].OrderTag
	})
	w := 0
	i := 0
	for i < n {
		j := i
		for j+1 < n && props[j+1].ToBit == props[i].ToBit {
			j++
		}
		winner := props[j]
		e.winners[w] = Winner{ToBit: winner.ToBit, Action: winner.Action}
		w++
		i = j + 1
	}
	return w
}

// applyAction applies action to bit and reports whether the bit's value
// actually changed (e.g. Enable on an already-enabled bit does not).
func applyAction(buf *bitstate.Buffer, bit uint32, action chunkfmt.Action) bool {
	before := buf.Get(bit)
	switch action {
	case chunkfmt.ActionEnable:
		buf.Set(bit, true)
	case chunkfmt.ActionDisable:
		buf.Set(bit, false)
	case chunkfmt.ActionToggle:
		buf.Set(bit, !before)
	}
	return buf.Get(bit) != before
}

// commit applies winners[:n], routed by the layout's range test. A winner
// can target any of the three sections: Internal and Output from
// intra-chunk connections, and Input from a cross-chunk link landing on
// its receiving chunk's Input bit. It stops early (without applying the
// remaining winners) once totalEffects would exceed maxEffects. It also
// reports whether any winner actually changed an Internal bit's value, so
// Tick can skip probing the cycle hash on rounds where Internal never
// moved -- without this, a round that only commits to Output or Input
// would hash the same unchanged Internal state as the round before it and
// register a spurious self-match.
func (e *Executor) commit(n int, totalEffects *uint64, maxEffects uint64) (applied int, internalChanged bool, tripped bool) {
	for i := 0; i < n; i++ {
		if *totalEffects >= maxEffects {
			return applied, internalChanged, true
		}
		wnr := e.winners[i]
		switch e.layout.Section(wnr.ToBit) {
		case chunkfmt.SectionInput:
			applyAction(&e.state.Input, wnr.ToBit, wnr.Action)
		case chunkfmt.SectionInternal:
			if applyAction(&e.state.Internal, wnr.ToBit-e.layout.InternalStart(), wnr.Action) {
				internalChanged = true
			}
		case chunkfmt.SectionOutput:
			applyAction(&e.state.Output, wnr.ToBit-e.layout.OutputStart(), wnr.Action)
		}
		*totalEffects++
		applied++
	}
	return applied, internalChanged, false
}

func (e *Executor) recordWinnersRound(pos int, winners []Winner) {
	cp := make([]Winner, len(winners))
	copy(cp, winners)
	e.winnersRing[pos] = cp
}

// Tick runs the round loop to termination and returns Metrics. maxRounds,
// if non-nil, overrides the configured round bound for this tick only.
func (e *Executor) Tick(maxRoundsOverride *uint32) (Metrics, error) {
	maxRounds := e.cfg.MaxRounds
	if maxRoundsOverride != nil {
		maxRounds = *maxRoundsOverride
	}

	e.detectInitial()
	e.commitSettled()

	var rounds uint32
	var totalEffects, totalProposals, totalWinners uint64
	var oscillator bool
	var period int
	var guardTripped bool

	for !frontierEmpty(e.frontier) {
		n, err := e.expand()
		if err != nil {
			e.state.CommitAll()
			return Metrics{}, err
		}
		totalProposals += uint64(n)

		w := e.resolve(n)
		totalWinners += uint64(w)

		applied, internalChanged, tripped := e.commit(w, &totalEffects, e.cfg.MaxEffects)
		_ = applied
		rounds++

		e.detectNext()
		e.commitSettled()

		// Only a round that actually changed the Internal section can be
		// part of a genuine cycle: a round that only committed to Input or
		// Output leaves Internal bit-for-bit identical to the round before
		// it, which would otherwise hash to the same value and register a
		// trivial self-match against the ring.
		if internalChanged {
			pos := e.ringPos()
			e.recordWinnersRound(pos, e.winners[:w])

			h := cyclehash.Compute(e.state.Internal.Curr)
			matched, matchIdx, p := e.ring.Observe(h, e.state.Internal.Curr)
			if matched {
				oscillator = true
				period = p
				e.applyQuench(matchIdx, pos)
				break
			}
		}
		if tripped || totalEffects >= e.cfg.MaxEffects {
			guardTripped = true
			break
		}
		if rounds >= maxRounds {
			guardTripped = true
			break
		}
	}

	e.state.CommitAll()

	return Metrics{
		Rounds:         rounds,
		EffectsApplied: totalEffects,
		Proposals:      totalProposals,
		Winners:        totalWinners,
		Oscillator:     oscillator,
		Period:         period,
		Policy:         e.policy,
		GuardTripped:   guardTripped,
	}, nil
}

// ringPos returns cyclehash.Ring's write cursor (Ring.CurrentPos) so the
// winners ring stays aligned with the hash ring.
func (e *Executor) ringPos() int {
	return e.ring.CurrentPos()
}

// cycleWindow returns the ring indices spanning the detected cycle, from
// just after the matching round reported by Ring.Observe up to and
// including the round that closed the cycle.
func cycleWindow(cap, matchIdx, closeIdx int) []int {
	var out []int
	for i := (matchIdx + 1) % cap; ; i = (i + 1) % cap {
		out = append(out, i)
		if i == closeIdx {
			break
		}
	}
	return out
}

func (e *Executor) applyQuench(matchIdx, closeIdx int) {
	switch e.policy {
	case PolicyFreezeLastStable:
		e.state.Internal.Restore(e.ring.SnapshotBefore())
		e.state.Internal.CommitPrev()
	case PolicyClampCommutative:
		e.applyClampCommutative(cycleWindow(e.ring.Cap(), matchIdx, closeIdx))
	case PolicyParityQuench:
		e.applyParityQuench(cycleWindow(e.ring.Cap(), matchIdx, closeIdx))
	}
}

// sccAllows reports whether a bit is eligible for cycle-scoped quenching:
// true if no SCC analysis was wired in, or if the bit belongs to a
// component with more than one member (a genuine cycle, not a transient
// pass-through).
func (e *Executor) sccAllows(globalInternalBit uint32) bool {
	if e.scc == nil {
		return true
	}
	local := globalInternalBit - e.layout.InternalStart()
	if int(local) >= len(e.scc.ComponentOf) {
		return true
	}
	comp := e.scc.ComponentOf[local]
	if comp < 0 {
		return true
	}
	return len(e.scc.Components[comp]) > 1
}

func (e *Executor) applyClampCommutative(window []int) {
	flipCount := map[uint32]int{}
	hasDisable := map[uint32]bool{}
	hasEnable := map[uint32]bool{}
	toggleCount := map[uint32]int{}
	for _, idx := range window {
		for _, w := range e.winnersRing[idx] {
			flipCount[w.ToBit]++
			switch w.Action {
			case chunkfmt.ActionDisable:
				hasDisable[w.ToBit] = true
			case chunkfmt.ActionEnable:
				hasEnable[w.ToBit] = true
			case chunkfmt.ActionToggle:
				toggleCount[w.ToBit]++
			}
		}
	}
	for bit, cnt := range flipCount {
		if cnt != len(window) || !e.sccAllows(bit) {
			continue
		}
		local := bit - e.layout.InternalStart()
		switch {
		case hasDisable[bit]:
			e.state.Internal.Set(local, false)
		case hasEnable[bit]:
			e.state.Internal.Set(local, true)
		default:
			if toggleCount[bit]%2 == 1 {
				e.state.Internal.Set(local, !e.state.Internal.Get(local))
			}
		}
	}
	e.state.Internal.CommitPrev()
}

func (e *Executor) applyParityQuench(window []int) {
	toggles := map[uint32]int{}
	for _, idx := range window {
		for _, w := range e.winnersRing[idx] {
			if !e.sccAllows(w.ToBit) {
				continue
			}
			if w.Action == chunkfmt.ActionToggle {
				toggles[w.ToBit]++
				continue
			}
			local := w.ToBit - e.layout.InternalStart()
			e.state.Internal.Set(local, w.Action == chunkfmt.ActionEnable)
		}
	}
	for bit, cnt := range toggles {
		if cnt%2 == 1 {
			local := bit - e.layout.InternalStart()
			e.state.Internal.Set(local, !e.state.Internal.Get(local))
		}
	}
	e.state.Internal.CommitPrev()
}
