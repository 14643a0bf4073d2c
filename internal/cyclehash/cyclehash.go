// Package cyclehash computes a 128-bit hash of the Internals state and
// maintains a fixed-size ring of recent hashes to detect cyclic (periodic)
// behavior within a tick's round loop.
package cyclehash

// Hash128 is a 128-bit digest, split into two 64-bit halves.
type Hash128 struct {
	Hi, Lo uint64
}

const (
	seed0 uint32 = 0x9e3779b1
	seed1 uint32 = 0x85ebca77
	seed2 uint32 = 0xc2b2ae3d
	seed3 uint32 = 0x27d4eb2f
)

func rotl(x uint32, k uint) uint32 {
	return x<<k | x>>(32-k)
}

// fmix32 is a Murmur3-style finalizer mix.
func fmix32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x85ebca6b
	x ^= x >> 13
	x *= 0xc2b2ae35
	x ^= x >> 16
	return x
}

// Compute hashes a packed word slice via four parallel mixers, each seeded
// with a different rotation of the input word, then finalized with a
// length mix.
func Compute(words []uint32) Hash128 {
	h0, h1, h2, h3 := seed0, seed1, seed2, seed3
	for _, w := range words {
		h0 = fmix32(h0 ^ rotl(w, 0))
		h1 = fmix32(h1 ^ rotl(w, 8))
		h2 = fmix32(h2 ^ rotl(w, 16))
		h3 = fmix32(h3 ^ rotl(w, 24))
	}
	n := uint32(len(words))
	h0 = fmix32(h0 ^ n)
	h1 = fmix32(h1 ^ n)
	h2 = fmix32(h2 ^ n)
	h3 = fmix32(h3 ^ n)
	return Hash128{
		Hi: uint64(h0)<<32 | uint64(h1),
		Lo: uint64(h2)<<32 | uint64(h3),
	}
}

// Ring is a fixed-capacity circular buffer of recent hashes plus the
// Internals snapshot taken alongside each one, used by quench policies to
// revert to a pre-cycle state.
type Ring struct {
	hashes    []Hash128
	snapshots [][]uint32
	pos       int
	filled    int
}

// NewRing allocates a ring of capacity r (r must be >= 1).
func NewRing(r int) *Ring {
	if r < 1 {
		r = 1
	}
	return &Ring{
		hashes:    make([]Hash128, r),
		snapshots: make([][]uint32, r),
	}
}

// Cap returns the ring capacity R.
func (r *Ring) Cap() int { return len(r.hashes) }

// CurrentPos returns the ring index that the next Observe call will write
// to. Callers that keep a parallel per-round ring (e.g. wavefront's winners
// history) use this to stay aligned with the hash ring's cursor.
func (r *Ring) CurrentPos() int { return r.pos }

// Observe checks h against every previously recorded hash still in the
// ring, then records h (and a copy of snapshot) at the current cursor and
// advances it. It returns whether a match was found, the ring index of the
// most recently recorded matching hash, and the detected period.
func (r *Ring) Observe(h Hash128, snapshot []uint32) (matched bool, matchIndex int, period int) {
	n := len(r.hashes)
	for k := 0; k < r.filled; k++ {
		i := (r.pos - 1 - k + n) % n
		if r.hashes[i] == h {
			matched = true
			matchIndex = i
			period = (n + r.pos - i) % n
			break
		}
	}
	snap := make([]uint32, len(snapshot))
	copy(snap, snapshot)
	r.hashes[r.pos] = h
	r.snapshots[r.pos] = snap
	if r.filled < n {
		r.filled++
	}
	r.pos = (r.pos + 1) % n
	return matched, matchIndex, period
}

// SnapshotBefore returns the Internals snapshot recorded two slots behind
// the ring position currently about to be overwritten -- i.e. the round
// before the most recently observed one. Read right after Observe reports a
// repeat, that is the most recent round whose hash had not yet repeated.
// Used by freeze_last_stable.
func (r *Ring) SnapshotBefore() []uint32 {
	n := len(r.hashes)
	i := (r.pos - 2 + 2*n) % n
	return r.snapshots[i]
}

// Reset clears the ring without reallocating its backing arrays.
func (r *Ring) Reset() {
	r.pos = 0
	r.filled = 0
}
