package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sort"
)

const version byte = 1

var (
	// ErrCorrupt is returned when a container image fails structural validation.
	ErrCorrupt = errors.New("clusterstore: corrupt container")
	magic4     = [...]byte{'C', 'L', 'S', 'T'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// EncodeContainer serializes a field -> payload map into a single container
// image. Fields are written in ascending name order so the same contents
// always produce the same bytes.
//
// Layout: magic(4) | ver(1) | n(u32 be) then per field:
// klen(u16 be) | key(klen) | vlen(u32 be) | payload(vlen)
func EncodeContainer(fields map[string][]byte) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	total := 4 + 1 + 4
	for _, k := range keys {
		total += 2 + len(k) + 4 + len(fields[k])
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var scratch [4]byte
	binary.BigEndian.PutUint32(scratch[:], uint32(len(keys)))
	buf.Write(scratch[:])

	for _, k := range keys {
		if l := len(k); l == 0 || l > 0xFFFF {
			panic("clusterstore: invalid field name length in container")
		}
		binary.BigEndian.PutUint16(scratch[:2], uint16(len(k)))
		buf.Write(scratch[:2])
		buf.WriteString(k)

		binary.BigEndian.PutUint32(scratch[:], uint32(len(fields[k])))
		buf.Write(scratch[:])
		buf.Write(fields[k])
	}

	return buf.Bytes()
}

// DecodeContainer parses a container image back into a field -> payload map.
// Payload slices alias the input buffer; callers that retain them past the
// buffer's lifetime must copy.
func DecodeContainer(b []byte) (map[string][]byte, error) {
	const hdr = 4 + 1 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return nil, ErrCorrupt
	}

	off := 5
	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// Each entry needs at least klen(2) + key(1) + vlen(4) bytes, so a count
	// the remaining bytes cannot hold is corruption, not an allocation hint.
	if n > (len(b)-hdr)/7 {
		return nil, ErrCorrupt
	}

	fields := make(map[string][]byte, n)
	for i := 0; i < n; i++ {
		if off+2 > len(b) {
			return nil, ErrCorrupt
		}
		klen := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if klen <= 0 || klen > len(b)-off {
			return nil, ErrCorrupt
		}
		key := string(b[off : off+klen])
		off += klen

		if off+4 > len(b) {
			return nil, ErrCorrupt
		}
		vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if vlen < 0 || vlen > len(b)-off {
			return nil, ErrCorrupt
		}

		fields[key] = b[off : off+vlen]
		off += vlen
	}
	if off != len(b) {
		return nil, ErrCorrupt
	}

	return fields, nil
}
