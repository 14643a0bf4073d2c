// Package layout assigns every Input, Internal, and Output bit across a
// loaded set of chunks a single global bit index, per the fixed section
// ordering Inputs, Internals, Outputs.
package layout

import "github.com/mycos-run/mycos/chunkfmt"

// Layout holds the per-chunk base offsets within each section block and the
// block boundaries in global bit index space.
type Layout struct {
	baseInput    []uint32
	baseInternal []uint32
	baseOutput   []uint32

	numInput, numInternal, numOutput uint32
}

// Build computes base offsets for a load set, in chunk order.
func Build(chunks []*chunkfmt.Chunk) *Layout {
	l := &Layout{
		baseInput:    make([]uint32, len(chunks)),
		baseInternal: make([]uint32, len(chunks)),
		baseOutput:   make([]uint32, len(chunks)),
	}
	var in, intl, out uint32
	for i, c := range chunks {
		l.baseInput[i] = in
		l.baseInternal[i] = intl
		l.baseOutput[i] = out
		in += c.Ni
		intl += c.Nn
		out += c.No
	}
	l.numInput, l.numInternal, l.numOutput = in, intl, out
	return l
}

// NumInput, NumInternal, NumOutput return the total bit count per section.
func (l *Layout) NumInput() uint32    { return l.numInput }
func (l *Layout) NumInternal() uint32 { return l.numInternal }
func (l *Layout) NumOutput() uint32   { return l.numOutput }

// Total returns the size of the global bit index space.
func (l *Layout) Total() uint32 { return l.numInput + l.numInternal + l.numOutput }

// InternalStart is the global index of the first Internal bit.
func (l *Layout) InternalStart() uint32 { return l.numInput }

// OutputStart is the global index of the first Output bit.
func (l *Layout) OutputStart() uint32 { return l.numInput + l.numInternal }

// GlobalInput maps a (chunk, local input index) pair to a global bit index.
func (l *Layout) GlobalInput(chunk int, local uint32) uint32 {
	return l.baseInput[chunk] + local
}

// GlobalInternal maps a (chunk, local internal index) pair to a global bit index.
func (l *Layout) GlobalInternal(chunk int, local uint32) uint32 {
	return l.InternalStart() + l.baseInternal[chunk] + local
}

// GlobalOutput maps a (chunk, local output index) pair to a global bit index.
func (l *Layout) GlobalOutput(chunk int, local uint32) uint32 {
	return l.OutputStart() + l.baseOutput[chunk] + local
}

// BaseInput, BaseInternal, BaseOutput expose the per-chunk base offset
// within their respective section block (not the global offset).
func (l *Layout) BaseInput(chunk int) uint32    { return l.baseInput[chunk] }
func (l *Layout) BaseInternal(chunk int) uint32 { return l.baseInternal[chunk] }
func (l *Layout) BaseOutput(chunk int) uint32   { return l.baseOutput[chunk] }

// Section classifies a global bit index into its section, using range
// tests only -- the Executor never needs a per-bit section tag.
func (l *Layout) Section(global uint32) chunkfmt.Section {
	switch {
	case global < l.InternalStart():
		return chunkfmt.SectionInput
	case global < l.OutputStart():
		return chunkfmt.SectionInternal
	default:
		return chunkfmt.SectionOutput
	}
}
