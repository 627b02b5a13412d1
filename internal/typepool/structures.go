package typepool

import "encoding/binary"

// Bytes encodes each primitive structure to the raw form SimpleType
// interns and PrimitiveTypeStructure hands back, mirroring the
// original's range::from_object_bytes(&value) — a fixed-width,
// little-endian field layout rather than an object's in-memory layout.

func (i Integer) Bytes() []byte {
	buf := make([]byte, 5)
	binary.LittleEndian.PutUint32(buf[0:4], i.Bits)
	if i.IsSigned {
		buf[4] = 1
	}
	return buf
}

func DecodeInteger(b []byte) Integer {
	return Integer{Bits: binary.LittleEndian.Uint32(b[0:4]), IsSigned: b[4] != 0}
}

func (f Float) Bytes() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, f.Bits)
	return buf
}

func DecodeFloat(b []byte) Float {
	return Float{Bits: binary.LittleEndian.Uint32(b)}
}

func (Boolean) Bytes() []byte { return nil }

func (r Reference) Bytes() []byte {
	buf := make([]byte, 5)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.ReferencedTypeID))
	var flags uint8
	if r.IsMut {
		flags |= 1
	}
	if r.IsMulti {
		flags |= 2
	}
	if r.IsOpt {
		flags |= 4
	}
	buf[4] = flags
	return buf
}

func DecodeReference(b []byte) Reference {
	flags := b[4]
	return Reference{
		ReferencedTypeID: Id(binary.LittleEndian.Uint32(b[0:4])),
		IsMut:            flags&1 != 0,
		IsMulti:          flags&2 != 0,
		IsOpt:            flags&4 != 0,
	}
}

func (a Array) Bytes() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(a.ElementTypeID))
	binary.LittleEndian.PutUint32(buf[4:8], a.ElementCount)
	return buf
}

func DecodeArray(b []byte) Array {
	return Array{
		ElementTypeID: Id(binary.LittleEndian.Uint32(b[0:4])),
		ElementCount:  binary.LittleEndian.Uint32(b[4:8]),
	}
}
