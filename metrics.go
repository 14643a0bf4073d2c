package mycos

import "github.com/mycos-run/mycos/internal/wavefront"

// Metrics is the per-tick result returned alongside Engine.Tick, the Tick
// Finalizer's public shape from the round loop's bookkeeping.
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

func fromWavefront(m wavefront.Metrics) Metrics {
	return Metrics{
		Rounds:         m.Rounds,
		EffectsApplied: m.EffectsApplied,
		Proposals:      m.Proposals,
		Winners:        m.Winners,
		Oscillator:     m.Oscillator,
		Period:         m.Period,
		Policy:         m.Policy,
		GuardTripped:   m.GuardTripped,
	}
}
