// Package chunkfmt implements the on-disk chunk and link binary formats:
// parsing, validation, and re-encoding. It knows nothing about global bit
// numbering, CSR adjacency, or execution; it only deals with the wire shapes
// the core consumes.
package chunkfmt

import "github.com/pkg/errors"

// Section identifies which bit-state section a connection endpoint belongs to.
type Section uint8

const (
	SectionInput Section = iota
	SectionInternal
	SectionOutput
)

func (s Section) String() string {
	switch s {
	case SectionInput:
		return "Input"
	case SectionInternal:
		return "Internal"
	case SectionOutput:
		return "Output"
	default:
		return "Section(invalid)"
	}
}

// Trigger is the edge kind that fires a connection or link.
type Trigger uint8

const (
	TriggerOn Trigger = iota
	TriggerOff
	TriggerToggle
)

func (t Trigger) valid() bool { return t <= TriggerToggle }

func (t Trigger) String() string {
	switch t {
	case TriggerOn:
		return "On"
	case TriggerOff:
		return "Off"
	case TriggerToggle:
		return "Toggle"
	default:
		return "Trigger(invalid)"
	}
}

// Action is the effect a connection or link applies to its target bit.
type Action uint8

const (
	ActionEnable Action = iota
	ActionDisable
	ActionToggle
)

func (a Action) valid() bool { return a <= ActionToggle }

func (a Action) String() string {
	switch a {
	case ActionEnable:
		return "Enable"
	case ActionDisable:
		return "Disable"
	case ActionToggle:
		return "Toggle"
	default:
		return "Action(invalid)"
	}
}

// Connection is an intra-chunk edge: a trigger on one bit producing an
// action on another, tagged with a resolver order.
type Connection struct {
	FromSection Section
	ToSection   Section
	Trigger     Trigger
	Action      Action
	FromIndex   uint32
	ToIndex     uint32
	OrderTag    uint32
}

// admissible reports whether the (from, to) section pair is one of the
// three transitions the core allows.
func admissible(from, to Section) bool {
	switch {
	case from == SectionInput && to == SectionInternal:
		return true
	case from == SectionInternal && to == SectionInternal:
		return true
	case from == SectionInternal && to == SectionOutput:
		return true
	default:
		return false
	}
}

// Chunk is a single packed bit-state unit with its connection table and
// initial bit values, as loaded from a chunk binary.
type Chunk struct {
	Ni, No, Nn  uint32
	Inputs      []byte // initial values, ceil(Ni/8) bytes, LSB-first
	Outputs     []byte // initial values, ceil(No/8) bytes, LSB-first
	Internals   []byte // initial values, ceil(Nn/8) bytes, LSB-first
	Connections []Connection
	Trailer     []TLV
}

// TLV is an optional, 4-byte aligned trailer record.
type TLV struct {
	Type uint16
	Data []byte
}

// Link is an inter-chunk Output->Input edge.
type Link struct {
	FromChunk  uint32
	FromOutIdx uint32
	Trigger    Trigger
	Action     Action
	ToChunk    uint32
	ToInIdx    uint32
	OrderTag   uint32
}

// ErrMalformed is wrapped by every structural/semantic parse failure. Callers
// classify it with errors.Is.
var ErrMalformed = errors.New("chunkfmt: malformed binary")

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformed, format, args...)
}

func byteLen(bits uint32) int {
	return int((bits + 7) / 8)
}

// GetBit reads bit i (LSB-first) from a packed byte slice.
func GetBit(data []byte, i uint32) bool {
	return data[i/8]&(1<<(i%8)) != 0
}

// SetBit writes bit i (LSB-first) into a packed byte slice.
func SetBit(data []byte, i uint32, v bool) {
	if v {
		data[i/8] |= 1 << (i % 8)
	} else {
		data[i/8] &^= 1 << (i % 8)
	}
}
