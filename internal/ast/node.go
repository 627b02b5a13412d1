// Package ast implements AstPool (C6): a builder that produces a
// compact, pre-order flattened node stream, plus non-allocating
// traversal iterators over a completed stream.
//
// The teacher's own internal/parser/ast.go builds a conventional
// pointer-and-interface tree (`Stmt`/`Expr` with concrete struct types
// holding `*Expr`/`[]Stmt` children) — exactly the representation
// spec.md §9's design notes call out for replacement: "a pointer-rich
// tree of heap-allocated, tagged-union nodes... flattened into a single
// contiguous arena... children addressed by relative offset rather
// than pointer". That rules out adapting ast.go's types directly; this
// package is built fresh against original_source/ast/ast_gen.hpp's
// shape (the non-stale copy, per spec.md §9) and spec.md §3/§4.6's
// node layout, while keeping the teacher's naming conventions (tag
// constants, `New`-style constructors) where they transfer.
package ast

// Tag identifies what kind of node a header describes.
type Tag uint8

const (
	TagInvalid Tag = iota
	TagFile
	TagBlock
	TagDefinition
	TagIdentifier
	TagLiteralInt
	TagLiteralFloat
	TagLiteralChar
	TagLiteralString
	TagUnaryOp
	TagBinaryOp
	TagIf
	TagFor
	TagSwitch
	TagCase
	TagImpl
	TagReturn
	TagBreak
	TagDefer
	TagCall
	TagIndex
	TagArrayType
	TagSliceType
	TagPtrType
	TagMultiPtrType
	TagRefType
	TagVariadicType
	TagProcSignature
	TagFuncSignature
	TagTraitSignature
)

// Flags are tag-specific bits within a node header.
type Flags uint32

const (
	FlagHasIdent  Flags = 1 << 0
	FlagIsPub     Flags = 1 << 1
	FlagIsComptime Flags = 1 << 2
	FlagIsMut     Flags = 1 << 3

	// Operator sub-kind for UnaryOp/BinaryOp occupies bits 8-15; the
	// pointer-like type nodes carry only FlagTypeIsMut (bit 4, below).
	flagsOpKindShift = 8
	flagsOpKindMask  = 0xFF << flagsOpKindShift

	// Definition: which of the optional type/value children are present.
	FlagDefHasType  Flags = 1 << 4
	FlagDefHasValue Flags = 1 << 5

	// If: optional `name:`/`name::` initializer and optional `else`.
	FlagIfHasInit Flags = 1 << 4
	FlagIfHasElse Flags = 1 << 5

	// For: optional initializer, optional condition/step (ForLoopSignature
	// only), optional finally, and which signature kind was parsed.
	FlagForHasInit      Flags = 1 << 4
	FlagForHasCondition Flags = 1 << 5
	FlagForHasStep      Flags = 1 << 6
	FlagForHasFinally   Flags = 1 << 7
	FlagForIsForEach    Flags = 1 << 16
	FlagForEachHasIndex Flags = 1 << 17

	// Switch: optional initializer.
	FlagSwitchHasInit Flags = 1 << 4

	// ProcSignature/FuncSignature: optional return type (never set for
	// TraitSignature, which disallows one).
	FlagSignatureHasReturnType Flags = 1 << 4

	// PtrType/SliceType/RefType/MultiPtrType: the `mut` prefix.
	FlagTypeIsMut Flags = 1 << 4
)

func (f Flags) OpKind() uint8 {
	return uint8((uint32(f) & flagsOpKindMask) >> flagsOpKindShift)
}

func FlagsWithOpKind(base Flags, opKind uint8) Flags {
	return (base &^ flagsOpKindMask) | Flags(uint32(opKind)<<flagsOpKindShift)
}

// internalFlags are the three bookkeeping bits spec.md §3 assigns to
// every header: FIRST_SIBLING, LAST_SIBLING, NO_CHILDREN.
type internalFlags uint8

const (
	flagFirstSibling internalFlags = 1 << 0
	flagLastSibling  internalFlags = 1 << 1
	flagNoChildren   internalFlags = 1 << 2
)

// headerWords is the fixed 8-word header size every node occupies
// before its optional inline payload, per spec.md §3.
const headerWords = 8

// TypeIDWithAssignability is the 32-bit slot a header reserves for
// post-parse type annotation; the parser always leaves it invalid.
type TypeIDWithAssignability uint32

const InvalidTypeIDWithAssignability TypeIDWithAssignability = 0

// Node is a read view over one header's 8 words plus its payload,
// resolved by offset from a Tree's word stream — never by pointer, so
// it stays valid across the tree's lifetime without aliasing concerns.
type Node struct {
	Tag                  Tag
	Flags                Flags
	DataDwords           uint32
	internalFlags        internalFlags
	NextSiblingOffsetDwords uint32
	TypeID               TypeIDWithAssignability
	SourceID             uint32

	// Offset is this node's own word offset within the tree, and
	// Payload is its inline payload words (length == DataDwords).
	Offset  uint32
	Payload []uint32
}

func (n Node) HasChildren() bool   { return n.internalFlags&flagNoChildren == 0 }
func (n Node) IsFirstSibling() bool { return n.internalFlags&flagFirstSibling != 0 }
func (n Node) IsLastSibling() bool  { return n.internalFlags&flagLastSibling != 0 }

// wordSize is this node's total footprint in 32-bit words: header plus
// inline payload.
func (n Node) wordSize() uint32 {
	return headerWords + n.DataDwords
}
