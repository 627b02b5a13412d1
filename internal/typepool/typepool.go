// Package typepool implements TypePool (C8): a primitive type interner
// keyed on (tag, structure bytes), plus a composite type builder that
// mints a fresh, never-deduplicated id per completed type.
package typepool

import (
	"encoding/binary"
	"hash/fnv"

	"frontc/internal/identifierpool"
	"frontc/internal/indexmap"
)

// Tag identifies which structure a TypeId's payload holds.
type Tag uint8

const (
	TagInvalid Tag = iota
	TagType
	TagDefinition
	TagCompInteger
	TagCompFloat
	TagCompString
	TagInteger
	TagFloat
	TagBoolean
	TagBuiltin
	TagCompositeLiteral
	TagArrayLiteral
	TagTypeBuilder
	TagSlice
	TagPtr
	TagArray
	TagFunc
	TagComposite
)

// Id is a 32-bit opaque type handle. Bit 31 is the "assignable" bit
// tracked separately from identity; IsAssignable/WithAssignable
// manipulate it without disturbing the identifying bits below it.
type Id uint32

const (
	InvalidId      Id = 0
	assignableBit  Id = 1 << 31
	identityMask   Id = assignableBit - 1
)

func (id Id) IsAssignable() bool  { return id&assignableBit != 0 }
func (id Id) WithAssignable(yes bool) Id {
	if yes {
		return id | assignableBit
	}
	return id &^ assignableBit
}
func (id Id) identity() Id { return id & identityMask }

// Integer, Float, Boolean are the primitive structural payloads.
type Integer struct {
	Bits     uint32
	IsSigned bool
}

type Float struct {
	Bits uint32
}

type Boolean struct{}

// Reference covers both Ptr and Slice (distinguished by the Tag passed
// to SimpleType), since their structure is identical per spec.md §3.
type Reference struct {
	ReferencedTypeID Id
	IsMut            bool
	IsMulti          bool
	IsOpt            bool
}

type Array struct {
	ElementTypeID Id
	ElementCount  uint32
}

// Member is one composite field: its originating definition plus its
// layout offset (byte offset for a field, or the encoded global value
// for a global member, matching spec.md §3's Member shape).
type Member struct {
	Name        identifierpool.Id
	HasType     bool
	HasValue    bool
	IsMut       bool
	IsPub       bool
	IsGlobal    bool
	OffsetOrGlobalValue uint32
}

// Composite is a nominal (never structurally deduplicated) type: every
// completed builder gets its own entry even if byte-identical to
// another.
type Composite struct {
	Size       uint32
	Align      uint32
	Stride     uint32
	IsComplete bool
	Members    []Member
}

// Pool owns the primitive interner and the composite store. It is
// released once, with everything it owns, by the driver (C11) in LIFO
// order alongside the other pools.
type Pool struct {
	primitives    *indexmap.Map[primitiveKey]
	primitiveByID map[Id]int // TypeId -> value-store offset
	idByOffset    map[int]Id

	composites    []Composite
	compositeByID map[Id]int // TypeId -> index into composites
	names         map[Id]identifierpool.Id
	nextID        Id
}

func New() *Pool {
	return &Pool{
		primitives:    indexmap.New[primitiveKey](primitiveCodec{}, 64, 1<<16, 1<<13),
		primitiveByID: make(map[Id]int),
		idByOffset:    make(map[int]Id),
		compositeByID: make(map[Id]int),
		names:         make(map[Id]identifierpool.Id),
		nextID:        1,
	}
}

func (p *Pool) Release() {
	p.primitives.Release()
	p.primitives = nil
	p.composites = nil
}

// SimpleType interns (tag, structureBytes): a repeated call with equal
// tag and equal bytes returns the same id every time.
func (p *Pool) SimpleType(tag Tag, structureBytes []byte) Id {
	key := primitiveKey{tag: tag, bytes: structureBytes}
	offset := p.primitives.IndexFrom(key)
	if id, ok := p.idByOffset[offset]; ok {
		return id
	}
	id := p.nextID
	p.nextID++
	p.primitiveByID[id] = offset
	p.idByOffset[offset] = id
	return id
}

func (p *Pool) TypeTagFromID(id Id) Tag {
	id = id.identity()
	if offset, ok := p.primitiveByID[id]; ok {
		rec := p.primitives.ValueAt(offset)
		return primitiveCodec{}.tagOf(rec)
	}
	if _, ok := p.compositeByID[id]; ok {
		return TagComposite
	}
	return TagInvalid
}

// PrimitiveTypeStructure returns the interned structure bytes for a
// primitive type id; it panics if id does not name a primitive.
func (p *Pool) PrimitiveTypeStructure(id Id) []byte {
	offset, ok := p.primitiveByID[id.identity()]
	if !ok {
		panic("typepool: PrimitiveTypeStructure called on a non-primitive id")
	}
	rec := p.primitives.ValueAt(offset)
	return primitiveCodec{}.structureOf(rec)
}

// TypeBuilder accumulates members for one composite type; it is
// single-use, finalized by CompleteType.
type TypeBuilder struct {
	pool    *Pool
	members []Member
}

func (p *Pool) CreateTypeBuilder() *TypeBuilder {
	return &TypeBuilder{pool: p}
}

func (b *TypeBuilder) AddMember(m Member) {
	b.members = append(b.members, m)
}

// CompleteType finalizes the builder: size/align/stride are fixed from
// here on. IsComplete starts false — composites that refer to
// themselves (spec.md §9's cyclic-reference construction: allocate id,
// populate members, finalize) are marked complete by a later call to
// MarkComplete once the surrounding semantic pass confirms the type
// has no unresolved forward references.
func (b *TypeBuilder) CompleteType(size, align, stride uint32) Id {
	id := b.pool.nextID
	b.pool.nextID++
	b.pool.compositeByID[id] = len(b.pool.composites)
	b.pool.composites = append(b.pool.composites, Composite{
		Size: size, Align: align, Stride: stride, IsComplete: false, Members: b.members,
	})
	return id
}

func (p *Pool) MarkComplete(id Id) {
	p.compositeAt(id).IsComplete = true
}

func (p *Pool) compositeAt(id Id) *Composite {
	idx, ok := p.compositeByID[id.identity()]
	if !ok {
		panic("typepool: compositeAt called with an unknown composite id")
	}
	return &p.composites[idx]
}

// MembersOf iterates a composite's members in insertion order.
func (p *Pool) MembersOf(id Id) []Member {
	return p.compositeAt(id).Members
}

func (p *Pool) CompositeOf(id Id) Composite {
	return *p.compositeAt(id)
}

// SetTypeName records the name a composite or builtin type was
// declared under; anonymous types simply never get an entry here.
func (p *Pool) SetTypeName(id Id, name identifierpool.Id) {
	p.names[id.identity()] = name
}

func (p *Pool) TypeNameFromID(id Id) identifierpool.Id {
	if name, ok := p.names[id.identity()]; ok {
		return name
	}
	return identifierpool.InvalidId
}

func (p *Pool) IsAssignable(id Id) bool {
	return id.IsAssignable()
}

// primitiveKey is the interning key: a type tag plus its raw structure
// bytes (an Integer{bits,is_signed}, a Reference{...}, an Array{...}).
type primitiveKey struct {
	tag   Tag
	bytes []byte
}

// primitiveCodec stores records as {hash u32, tag u8, length u32,
// bytes...}, the same header/bytes shape internal/identifierpool uses
// for interned byte strings, with one extra leading tag byte so two
// different tags never collide even when their structure bytes match.
type primitiveCodec struct{}

const primitiveHeaderBytes = 4 + 1 + 4

func (primitiveCodec) Hash(key primitiveKey) uint32 {
	h := fnv.New32a()
	h.Write([]byte{byte(key.tag)})
	h.Write(key.bytes)
	return h.Sum32()
}

func (primitiveCodec) Size(key primitiveKey) int {
	return primitiveHeaderBytes + len(key.bytes)
}

func (primitiveCodec) Write(dst []byte, key primitiveKey, hash uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], hash)
	dst[4] = byte(key.tag)
	binary.LittleEndian.PutUint32(dst[5:9], uint32(len(key.bytes)))
	copy(dst[9:], key.bytes)
}

func (c primitiveCodec) Equal(record []byte, key primitiveKey, hash uint32) bool {
	if c.StoredHash(record) != hash {
		return false
	}
	if record[4] != byte(key.tag) {
		return false
	}
	stored := c.structureOf(record)
	if len(stored) != len(key.bytes) {
		return false
	}
	for i := range stored {
		if stored[i] != key.bytes[i] {
			return false
		}
	}
	return true
}

func (primitiveCodec) StoredHash(record []byte) uint32 {
	return binary.LittleEndian.Uint32(record[0:4])
}

func (c primitiveCodec) StoredSize(record []byte) int {
	return primitiveHeaderBytes + int(binary.LittleEndian.Uint32(record[5:9]))
}

func (primitiveCodec) tagOf(record []byte) Tag {
	return Tag(record[4])
}

func (c primitiveCodec) structureOf(record []byte) []byte {
	n := binary.LittleEndian.Uint32(record[5:9])
	return record[9 : 9+n]
}
