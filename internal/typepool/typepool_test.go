package typepool

import (
	"testing"

	"frontc/internal/identifierpool"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	p := New()
	t.Cleanup(p.Release)
	return p
}

func TestSimpleTypeIntegerReturnsIntegerStructure(t *testing.T) {
	p := newTestPool(t)
	id := p.SimpleType(TagInteger, Integer{Bits: 16, IsSigned: false}.Bytes())
	if id == InvalidId {
		t.Fatalf("expected a valid id")
	}
	if p.TypeTagFromID(id) != TagInteger {
		t.Fatalf("got tag %v, want Integer", p.TypeTagFromID(id))
	}
	got := DecodeInteger(p.PrimitiveTypeStructure(id))
	if got.Bits != 16 || got.IsSigned {
		t.Fatalf("got %+v", got)
	}
}

func TestSimpleTypeDeduplicatesEqualStructures(t *testing.T) {
	p := newTestPool(t)
	a := p.SimpleType(TagInteger, Integer{Bits: 32, IsSigned: true}.Bytes())
	b := p.SimpleType(TagInteger, Integer{Bits: 32, IsSigned: true}.Bytes())
	if a != b {
		t.Fatalf("expected same id for equal structures, got %v != %v", a, b)
	}
}

func TestSimpleTypeDistinguishesTagsWithSameBits(t *testing.T) {
	p := newTestPool(t)
	u32 := p.SimpleType(TagInteger, Integer{Bits: 32, IsSigned: false}.Bytes())
	f32 := p.SimpleType(TagFloat, Float{Bits: 32}.Bytes())
	if u32 == f32 {
		t.Fatalf("expected distinct ids for Integer vs Float with the same bit pattern")
	}
	if p.TypeTagFromID(u32) != TagInteger || p.TypeTagFromID(f32) != TagFloat {
		t.Fatalf("got tags %v / %v", p.TypeTagFromID(u32), p.TypeTagFromID(f32))
	}
}

func TestSimpleTypeArrayTracksElementTypeAndCount(t *testing.T) {
	p := newTestPool(t)
	elem := p.SimpleType(TagInteger, Integer{Bits: 32, IsSigned: true}.Bytes())
	arr := p.SimpleType(TagArray, Array{ElementTypeID: elem, ElementCount: 128}.Bytes())
	got := DecodeArray(p.PrimitiveTypeStructure(arr))
	if got.ElementCount != 128 || got.ElementTypeID != elem {
		t.Fatalf("got %+v", got)
	}
}

func TestSimpleTypeDifferentArrayCountsAreDistinct(t *testing.T) {
	p := newTestPool(t)
	elem := p.SimpleType(TagInteger, Integer{Bits: 32, IsSigned: true}.Bytes())
	a := p.SimpleType(TagArray, Array{ElementTypeID: elem, ElementCount: 128}.Bytes())
	b := p.SimpleType(TagArray, Array{ElementTypeID: elem, ElementCount: 42}.Bytes())
	if a == b {
		t.Fatalf("expected different-length arrays to get distinct ids")
	}
}

func TestTypeBuilderWithNoMembersCreatesEmptyComposite(t *testing.T) {
	p := newTestPool(t)
	b := p.CreateTypeBuilder()
	id := b.CompleteType(3, 1, 4)

	if p.TypeTagFromID(id) != TagComposite {
		t.Fatalf("got tag %v, want Composite", p.TypeTagFromID(id))
	}
	c := p.CompositeOf(id)
	if c.Size != 3 || c.Align != 1 || c.Stride != 4 || c.IsComplete || len(c.Members) != 0 {
		t.Fatalf("got %+v", c)
	}
}

func TestTypeBuilderWithMembersPreservesInsertionOrder(t *testing.T) {
	p := newTestPool(t)
	b := p.CreateTypeBuilder()
	b.AddMember(Member{Name: identifierpool.Id(5), IsMut: true, IsPub: true})
	b.AddMember(Member{Name: identifierpool.Id(7), HasType: true})
	id := b.CompleteType(1, 2, 3)

	members := p.MembersOf(id)
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	if members[0].Name != identifierpool.Id(5) || members[1].Name != identifierpool.Id(7) {
		t.Fatalf("got %+v", members)
	}
}

func TestTwoCompositesAreNeverTheSameIdEvenIfIdentical(t *testing.T) {
	p := newTestPool(t)
	a := p.CreateTypeBuilder().CompleteType(1, 2, 3)
	b := p.CreateTypeBuilder().CompleteType(1, 2, 3)
	if a == b {
		t.Fatalf("expected distinct ids for separately built composites")
	}
}

func TestMarkCompleteFlipsIsComplete(t *testing.T) {
	p := newTestPool(t)
	id := p.CreateTypeBuilder().CompleteType(1, 1, 1)
	p.MarkComplete(id)
	if !p.CompositeOf(id).IsComplete {
		t.Fatalf("expected IsComplete to be true after MarkComplete")
	}
}

func TestAssignableBitSurvivesIdentity(t *testing.T) {
	p := newTestPool(t)
	id := p.SimpleType(TagInteger, Integer{Bits: 8, IsSigned: true}.Bytes())
	assignable := id.WithAssignable(true)
	if !assignable.IsAssignable() {
		t.Fatalf("expected IsAssignable to be true")
	}
	if assignable.identity() != id.identity() {
		t.Fatalf("expected identity to be unaffected by the assignable bit")
	}
	if p.TypeTagFromID(assignable) != TagInteger {
		t.Fatalf("expected TypeTagFromID to ignore the assignable bit")
	}
}

func TestTypeNameFromIDReturnsInvalidForAnonymousTypes(t *testing.T) {
	p := newTestPool(t)
	id := p.SimpleType(TagInteger, Integer{Bits: 8, IsSigned: false}.Bytes())
	if p.TypeNameFromID(id) != identifierpool.InvalidId {
		t.Fatalf("expected anonymous primitive type to have no name")
	}
}
