package chunkfmt

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Magic is the 8-byte chunk binary signature "MYCOSCH0".
var Magic = [8]byte{'M', 'Y', 'C', 'O', 'S', 'C', 'H', '0'}

const (
	headerSize     = 32
	connRecordSize = 16
	linkRecordSize = 24
	supportedVer   = 1
)

// Parse decodes and validates a single chunk binary (v1). It returns
// ErrMalformed (wrapped with a specific cause) for any structural or
// semantic violation.
func Parse(data []byte) (*Chunk, error) {
	if len(data) < headerSize {
		return nil, malformed("truncated header: %d bytes", len(data))
	}
	var magic [8]byte
	copy(magic[:], data[:8])
	if magic != Magic {
		return nil, malformed("bad magic %x", magic)
	}
	version := binary.LittleEndian.Uint16(data[8:10])
	if version != supportedVer {
		return nil, malformed("unsupported version %d", version)
	}
	// flags := binary.LittleEndian.Uint16(data[10:12]) // reserved, ignored
	ni := binary.LittleEndian.Uint32(data[12:16])
	no := binary.LittleEndian.Uint32(data[16:20])
	nn := binary.LittleEndian.Uint32(data[20:24])
	nc := binary.LittleEndian.Uint32(data[24:28])

	off := headerSize
	inLen, outLen, intLen := byteLen(ni), byteLen(no), byteLen(nn)

	inputs, off, err := readSection(data, off, inLen, "inputs")
	if err != nil {
		return nil, err
	}
	outputs, off, err := readSection(data, off, outLen, "outputs")
	if err != nil {
		return nil, err
	}
	internals, off, err := readSection(data, off, intLen, "internals")
	if err != nil {
		return nil, err
	}

	conns := make([]Connection, 0, nc)
	for i := uint32(0); i < nc; i++ {
		if off+connRecordSize > len(data) {
			return nil, malformed("truncated connection record %d", i)
		}
		rec := data[off : off+connRecordSize]
		c := Connection{
			FromSection: Section(rec[0]),
			ToSection:   Section(rec[1]),
			Trigger:     Trigger(rec[2]),
			Action:      Action(rec[3]),
			FromIndex:   binary.LittleEndian.Uint32(rec[4:8]),
			ToIndex:     binary.LittleEndian.Uint32(rec[8:12]),
			OrderTag:    binary.LittleEndian.Uint32(rec[12:16]),
		}
		if err := validateConnection(c, ni, nn, no); err != nil {
			return nil, errors.Wrapf(err, "connection %d", i)
		}
		conns = append(conns, c)
		off += connRecordSize
	}

	if err := validateConnectionOrder(conns); err != nil {
		return nil, err
	}

	trailer, err := readTLV(data[off:])
	if err != nil {
		return nil, err
	}

	return &Chunk{
		Ni: ni, No: no, Nn: nn,
		Inputs: inputs, Outputs: outputs, Internals: internals,
		Connections: conns,
		Trailer:     trailer,
	}, nil
}

func readSection(data []byte, off, n int, name string) ([]byte, int, error) {
	if off+n > len(data) {
		return nil, off, malformed("truncated %s section", name)
	}
	buf := make([]byte, n)
	copy(buf, data[off:off+n])
	return buf, off + n, nil
}

func readTLV(data []byte) ([]TLV, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out []TLV
	off := 0
	for off < len(data) {
		if off+4 > len(data) {
			return nil, malformed("truncated TLV header")
		}
		typ := binary.LittleEndian.Uint16(data[off : off+2])
		length := binary.LittleEndian.Uint16(data[off+2 : off+4])
		off += 4
		if off+int(length) > len(data) {
			return nil, malformed("truncated TLV payload for type %d", typ)
		}
		payload := make([]byte, length)
		copy(payload, data[off:off+int(length)])
		out = append(out, TLV{Type: typ, Data: payload})
		off += int(length)
		// 4-byte alignment padding
		if pad := off % 4; pad != 0 {
			off += 4 - pad
		}
	}
	return out, nil
}

func validateConnection(c Connection, ni, nn, no uint32) error {
	if !admissible(c.FromSection, c.ToSection) {
		return malformed("forbidden edge kind %s->%s", c.FromSection, c.ToSection)
	}
	if !c.Trigger.valid() {
		return malformed("invalid trigger %d", c.Trigger)
	}
	if !c.Action.valid() {
		return malformed("invalid action %d", c.Action)
	}
	var fromN, toN uint32
	switch c.FromSection {
	case SectionInput:
		fromN = ni
	case SectionInternal:
		fromN = nn
	}
	switch c.ToSection {
	case SectionInternal:
		toN = nn
	case SectionOutput:
		toN = no
	}
	if c.FromIndex >= fromN {
		return malformed("from_index %d out of range [0,%d)", c.FromIndex, fromN)
	}
	if c.ToIndex >= toN {
		return malformed("to_index %d out of range [0,%d)", c.ToIndex, toN)
	}
	return nil
}

// validateConnectionOrder checks that connections are sorted by
// (from_section, from_index, order_tag) with order_tag strictly increasing
// per (from_section, from_index) source key.
func validateConnectionOrder(conns []Connection) error {
	type key struct {
		sec Section
		idx uint32
	}
	last := make(map[key]uint32)
	var prevKey key
	var prevSet bool
	for i, c := range conns {
		k := key{c.FromSection, c.FromIndex}
		if tag, ok := last[k]; ok {
			if c.OrderTag <= tag {
				return malformed("order_tag not strictly increasing for source (%s,%d) at connection %d", c.FromSection, c.FromIndex, i)
			}
		}
		last[k] = c.OrderTag
		if prevSet {
			if k.sec < prevKey.sec || (k.sec == prevKey.sec && k.idx < prevKey.idx) {
				return malformed("connections not sorted by (from_section, from_index) at connection %d", i)
			}
		}
		prevKey = k
		prevSet = true
	}
	return nil
}

// ParseLinks decodes a link binary: a flat array of fixed-size records with
// no header.
func ParseLinks(data []byte) ([]Link, error) {
	if len(data)%linkRecordSize != 0 {
		return nil, malformed("link binary size %d not a multiple of %d", len(data), linkRecordSize)
	}
	n := len(data) / linkRecordSize
	links := make([]Link, 0, n)
	lastTag := make(map[[2]uint32]uint32)
	for i := 0; i < n; i++ {
		rec := data[i*linkRecordSize : (i+1)*linkRecordSize]
		l := Link{
			FromChunk:  binary.LittleEndian.Uint32(rec[0:4]),
			FromOutIdx: binary.LittleEndian.Uint32(rec[4:8]),
			Trigger:    Trigger(rec[8]),
			Action:     Action(rec[9]),
			ToChunk:    binary.LittleEndian.Uint32(rec[12:16]),
			ToInIdx:    binary.LittleEndian.Uint32(rec[16:20]),
			OrderTag:   binary.LittleEndian.Uint32(rec[20:24]),
		}
		if !l.Trigger.valid() {
			return nil, malformed("link %d: invalid trigger %d", i, l.Trigger)
		}
		if !l.Action.valid() {
			return nil, malformed("link %d: invalid action %d", i, l.Action)
		}
		k := [2]uint32{l.FromChunk, l.FromOutIdx}
		if tag, ok := lastTag[k]; ok && l.OrderTag <= tag {
			return nil, malformed("link %d: order_tag not strictly increasing for source (chunk %d, out %d)", i, l.FromChunk, l.FromOutIdx)
		}
		lastTag[k] = l.OrderTag
		links = append(links, l)
	}
	return links, nil
}
