// Package bitstate holds the packed, double-buffered bit state for one
// section (Inputs, Internals, or Outputs) across a whole load set. Words
// are 32 bits, LSB-first.
package bitstate

// Buffer is a Prev/Curr pair of packed word arrays for one section.
type Buffer struct {
	Prev    []uint32
	Curr    []uint32
	NumBits uint32
}

// NewBuffer allocates a zeroed Prev/Curr pair sized for numBits.
func NewBuffer(numBits uint32) Buffer {
	words := (numBits + 31) / 32
	return Buffer{
		Prev:    make([]uint32, words),
		Curr:    make([]uint32, words),
		NumBits: numBits,
	}
}

// Get reads bit i from Curr.
func (b *Buffer) Get(i uint32) bool {
	return b.Curr[i>>5]&(1<<(i&31)) != 0
}

// GetPrev reads bit i from Prev.
func (b *Buffer) GetPrev(i uint32) bool {
	return b.Prev[i>>5]&(1<<(i&31)) != 0
}

// Set writes bit i in Curr.
func (b *Buffer) Set(i uint32, v bool) {
	if v {
		b.Curr[i>>5] |= 1 << (i & 31)
	} else {
		b.Curr[i>>5] &^= 1 << (i & 31)
	}
}

// Seed loads initial values (LSB-first packed bytes, as delivered by
// chunkfmt) into Curr at a bit offset, leaving Prev at zero. Used once at
// load time so the first tick can detect "power-on" transitions relative
// to an implicit all-zero baseline.
func (b *Buffer) Seed(baseBit uint32, initial []byte, n uint32) {
	for i := uint32(0); i < n; i++ {
		if initial[i/8]&(1<<(i%8)) != 0 {
			b.Set(baseBit+i, true)
		}
	}
}

// WriteWords copies host-provided words into Curr at the given bit offset,
// a bit-exact copy of exactly n bits (the remaining bits of the last word
// touched are left untouched).
func (b *Buffer) WriteWords(baseBit uint32, n uint32, words []uint32) {
	for i := uint32(0); i < n; i++ {
		w := words[i>>5]
		v := w&(1<<(i&31)) != 0
		b.Set(baseBit+i, v)
	}
}

// ReadWords copies n bits starting at baseBit out of Prev into dst, packed
// LSB-first starting at dst[0] bit 0.
func (b *Buffer) ReadWords(baseBit uint32, n uint32, dst []uint32) {
	for i := range dst {
		dst[i] = 0
	}
	for i := uint32(0); i < n; i++ {
		if b.GetPrev(baseBit + i) {
			dst[i>>5] |= 1 << (i & 31)
		}
	}
}

// CommitPrev copies Curr into Prev, word for word.
func (b *Buffer) CommitPrev() {
	copy(b.Prev, b.Curr)
}

// Snapshot returns a copy of Curr.
func (b *Buffer) Snapshot() []uint32 {
	s := make([]uint32, len(b.Curr))
	copy(s, b.Curr)
	return s
}

// Restore overwrites Curr with a previously captured snapshot.
func (b *Buffer) Restore(snap []uint32) {
	copy(b.Curr, snap)
}

// Sections bundles the three double-buffers an Engine owns.
type Sections struct {
	Input    Buffer
	Internal Buffer
	Output   Buffer
}

// NewSections allocates all three buffers.
func NewSections(numInput, numInternal, numOutput uint32) *Sections {
	return &Sections{
		Input:    NewBuffer(numInput),
		Internal: NewBuffer(numInternal),
		Output:   NewBuffer(numOutput),
	}
}

// CommitAll copies Curr into Prev for all three sections, as the Tick
// Finalizer does at the end of every tick.
func (s *Sections) CommitAll() {
	s.Input.CommitPrev()
	s.Internal.CommitPrev()
	s.Output.CommitPrev()
}
