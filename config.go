package mycos

import "github.com/mycos-run/mycos/internal/wavefront"

// Config bounds engine behavior. NewEngine fills zero MaxRounds,
// MaxEffects, and CycleHashWindow with DefaultConfig's values; the other
// fields are used as given (a zero UseSCC stays false).
type Config struct {
	// MaxRounds bounds a tick's round loop; exceeding it without an empty
	// frontier trips the guard.
	MaxRounds uint32

	// MaxEffects bounds total commits across a tick's round loop.
	MaxEffects uint64

	// CycleHashWindow is the ring capacity R used for oscillator
	// detection.
	CycleHashWindow int

	// Policy is the initial quench policy; SetPolicy changes it later.
	Policy Policy

	// UseSCC wires an SCC analysis (component membership only) of the
	// Internal->Internal subgraph into the executor, letting
	// clamp_commutative and parity_quench scope themselves to genuine
	// cycles.
	UseSCC bool

	// ProposalCapacity, if non-zero, overrides the worst-case per-round
	// proposal scratch size computed from the CSR's fan-out sums. Leave
	// zero unless a load set's real per-round fan-out is known to be far
	// below the computed worst case.
	ProposalCapacity int
}

// DefaultConfig matches the values spec'd for the reference engine.
func DefaultConfig() Config {
	return Config{
		MaxRounds:       1024,
		MaxEffects:      5_000_000,
		CycleHashWindow: 8,
		Policy:          PolicyFreezeLastStable,
		UseSCC:          true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRounds == 0 {
		c.MaxRounds = d.MaxRounds
	}
	if c.MaxEffects == 0 {
		c.MaxEffects = d.MaxEffects
	}
	if c.CycleHashWindow == 0 {
		c.CycleHashWindow = d.CycleHashWindow
	}
	return c
}

func (c Config) wavefrontConfig() wavefront.Config {
	return wavefront.Config{
		MaxRounds:        c.MaxRounds,
		MaxEffects:       c.MaxEffects,
		CycleWindow:      c.CycleHashWindow,
		ProposalCapacity: c.ProposalCapacity,
	}
}
