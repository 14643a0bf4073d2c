package chunkfmt

import "encoding/binary"

// Encode serializes a Chunk back to its v1 binary form. Encode(Parse(b)) is
// not guaranteed to equal b byte-for-byte (padding bytes and trailer
// alignment are normalized), but Parse(Encode(c)) reproduces c exactly for
// any Chunk that was itself produced by Parse.
func Encode(c *Chunk) []byte {
	inLen, outLen, intLen := byteLen(c.Ni), byteLen(c.No), byteLen(c.Nn)
	size := headerSize + inLen + outLen + intLen + len(c.Connections)*connRecordSize
	for _, t := range c.Trailer {
		n := 4 + len(t.Data)
		if pad := n % 4; pad != 0 {
			n += 4 - pad
		}
		size += n
	}
	buf := make([]byte, size)
	copy(buf[0:8], Magic[:])
	binary.LittleEndian.PutUint16(buf[8:10], supportedVer)
	binary.LittleEndian.PutUint16(buf[10:12], 0)
	binary.LittleEndian.PutUint32(buf[12:16], c.Ni)
	binary.LittleEndian.PutUint32(buf[16:20], c.No)
	binary.LittleEndian.PutUint32(buf[20:24], c.Nn)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(len(c.Connections)))
	binary.LittleEndian.PutUint32(buf[28:32], 0)

	off := headerSize
	off += copySection(buf[off:], c.Inputs, inLen)
	off += copySection(buf[off:], c.Outputs, outLen)
	off += copySection(buf[off:], c.Internals, intLen)

	for _, conn := range c.Connections {
		rec := buf[off : off+connRecordSize]
		rec[0] = byte(conn.FromSection)
		rec[1] = byte(conn.ToSection)
		rec[2] = byte(conn.Trigger)
		rec[3] = byte(conn.Action)
		binary.LittleEndian.PutUint32(rec[4:8], conn.FromIndex)
		binary.LittleEndian.PutUint32(rec[8:12], conn.ToIndex)
		binary.LittleEndian.PutUint32(rec[12:16], conn.OrderTag)
		off += connRecordSize
	}

	trailerStart := off
	for _, t := range c.Trailer {
		binary.LittleEndian.PutUint16(buf[off:off+2], t.Type)
		binary.LittleEndian.PutUint16(buf[off+2:off+4], uint16(len(t.Data)))
		off += 4
		copy(buf[off:off+len(t.Data)], t.Data)
		off += len(t.Data)
		if pad := (off - trailerStart) % 4; pad != 0 {
			off += 4 - pad
		}
	}

	return buf
}

func copySection(dst, src []byte, n int) int {
	copy(dst[:n], src)
	return n
}

// EncodeLinks serializes a slice of Links to the flat link binary format.
func EncodeLinks(links []Link) []byte {
	buf := make([]byte, len(links)*linkRecordSize)
	for i, l := range links {
		rec := buf[i*linkRecordSize : (i+1)*linkRecordSize]
		binary.LittleEndian.PutUint32(rec[0:4], l.FromChunk)
		binary.LittleEndian.PutUint32(rec[4:8], l.FromOutIdx)
		rec[8] = byte(l.Trigger)
		rec[9] = byte(l.Action)
		binary.LittleEndian.PutUint16(rec[10:12], 0)
		binary.LittleEndian.PutUint32(rec[12:16], l.ToChunk)
		binary.LittleEndian.PutUint32(rec[16:20], l.ToInIdx)
		binary.LittleEndian.PutUint32(rec[20:24], l.OrderTag)
	}
	return buf
}
