package mycos

import "github.com/pkg/errors"

// Sentinel errors classify failures the way host integrations need to
// branch on: fatal load-time/device errors vs. the non-fatal
// guard/oscillator conditions that are reported through Metrics instead of
// aborting a tick.
var (
	// ErrInvalidBinary wraps a chunkfmt parse failure: malformed header,
	// forbidden edge kind, out-of-range index, or non-monotonic order_tag.
	ErrInvalidBinary = errors.New("mycos: invalid binary")

	// ErrCapacityExceeded means a round's proposal count exceeded the
	// scratch buffer sized at load time.
	ErrCapacityExceeded = errors.New("mycos: capacity exceeded")

	// ErrGuardTripped means a tick stopped because it hit max_rounds or
	// max_effects without the frontier going empty. Non-fatal: reported
	// via Metrics.GuardTripped, the engine remains usable.
	ErrGuardTripped = errors.New("mycos: guard tripped")

	// ErrOscillator means a tick detected a repeating Internals state.
	// Non-fatal: reported via Metrics.Oscillator, resolved by the active
	// quench policy.
	ErrOscillator = errors.New("mycos: oscillator detected")

	// ErrNotInitialized means a host operation was called before
	// LoadChunks/LoadLinks completed successfully.
	ErrNotInitialized = errors.New("mycos: engine not initialized")
)
