package opcode

import (
	"encoding/binary"
	"math"

	"frontc/internal/reservedvec"
)

// Pool is OpcodePool (C9): a variable-length, byte-addressed opcode
// stream backed by a reservedvec.Vec. Every Id handed back by a Write*
// call is a stable byte offset into the stream, usable as a
// back-reference for as long as the Pool lives — this replaces the
// teacher's Chunk, whose plain append-only []byte loses that guarantee
// the moment its backing array is reallocated by append.
type Pool struct {
	store reservedvec.Vec
}

// NewPool reserves reserveBytes of address space for the stream,
// committing commitIncrementBytes at a time as it grows.
func NewPool(reserveBytes, commitIncrementBytes int) *Pool {
	p := &Pool{}
	p.store.Init(reserveBytes, commitIncrementBytes)
	return p
}

func (p *Pool) Release() {
	p.store.Release()
}

// Here returns the Id the next Write call will be assigned.
func (p *Pool) Here() Id {
	return Id(p.store.Used())
}

// WriteTag appends an opcode's leading byte: tag in the low 7 bits,
// consumesWriteCtx in the high bit.
func (p *Pool) WriteTag(tag Tag, consumesWriteCtx bool) Id {
	id := p.Here()
	b := byte(tag) & 0x7F
	if consumesWriteCtx {
		b |= 0x80
	}
	p.store.AppendExact([]byte{b})
	return id
}

func (p *Pool) WriteU8(v uint8) {
	p.store.AppendExact([]byte{v})
}

func (p *Pool) WriteU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	p.store.AppendExact(buf[:])
}

func (p *Pool) WriteI64(v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	p.store.AppendExact(buf[:])
}

func (p *Pool) WriteF64(v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	p.store.AppendExact(buf[:])
}

// WriteId appends an opcode back-reference: another instruction's byte
// offset within this same stream.
func (p *Pool) WriteId(id Id) {
	p.WriteU32(uint32(id))
}

// WriteBytes appends a length-prefixed byte string (a string literal's
// payload, or a dyn-signature's raw blob).
func (p *Pool) WriteBytes(b []byte) {
	p.WriteU32(uint32(len(b)))
	if len(b) > 0 {
		p.store.AppendExact(b)
	}
}

func (p *Pool) Len() int { return p.store.Used() }

func (p *Pool) byteAt(offset, n int) []byte {
	return p.store.At(offset, n)
}
