package opcode

// IdentifierId mirrors internal/identifierpool.Id without importing that
// package: the opcode stream only ever treats it as an opaque 32-bit
// value to copy in and back out again, never to dereference.
type IdentifierId uint32

// ForeverValueId names an entry in a long-lived string-literal table
// (values a ValueString opcode must still be able to read back after
// everything else in a compilation unit is released). No such table is
// implemented yet; the id is threaded through so the opcode encoding is
// complete and stable once one is.
type ForeverValueId uint32

// Builtin identifies one of the compiler-known builtin operations
// LoadBuiltin/ExecBuiltin reference, analogous to the teacher's
// internal/vmregister builtin-function table but closed over a much
// smaller, compile-time-only set.
type Builtin uint8

const (
	BuiltinInvalid Builtin = iota
	BuiltinLen
	BuiltinSizeOf
	BuiltinAlignOf
	BuiltinTypeOf
)

// ParamRecord is one Signature/DynSignature parameter: its name and its
// per-parameter flag byte, with an optional templated-parameter
// completion callback for DynSignature.
type ParamRecord struct {
	Name       IdentifierId
	Flags      uint8
	Completion Id // InvalidId unless DynSignature and templated
}

func (p *Pool) writeSimple(tag Tag, consumesWriteCtx bool) Id {
	return p.WriteTag(tag, consumesWriteCtx)
}

// WriteSetWriteCtx and the rest of the zero-operand opcodes share one
// helper since their encoding is just the tag byte.
func (p *Pool) WriteSetWriteCtx() Id             { return p.writeSimple(TagSetWriteCtx, false) }
func (p *Pool) WriteScopeEnd() Id                { return p.writeSimple(TagScopeEnd, false) }
func (p *Pool) WritePopClosure() Id              { return p.writeSimple(TagPopClosure, false) }
func (p *Pool) WriteExecArgsTag(consumes bool) Id { return p.writeSimple(TagExecArgs, consumes) }
func (p *Pool) WriteCall(consumes bool) Id        { return p.writeSimple(TagCall, consumes) }
func (p *Pool) WriteReturn(consumes bool) Id      { return p.writeSimple(TagReturn, consumes) }
func (p *Pool) WriteAddressOf() Id               { return p.writeSimple(TagAddressOf, false) }
func (p *Pool) WriteDereference() Id             { return p.writeSimple(TagDereference, false) }
func (p *Pool) WriteIndex() Id                   { return p.writeSimple(TagIndex, false) }
func (p *Pool) WriteBitNot() Id                  { return p.writeSimple(TagBitNot, false) }
func (p *Pool) WriteLogicalAnd() Id              { return p.writeSimple(TagLogicalAnd, false) }
func (p *Pool) WriteLogicalOr() Id               { return p.writeSimple(TagLogicalOr, false) }
func (p *Pool) WriteLogicalNot() Id              { return p.writeSimple(TagLogicalNot, false) }
func (p *Pool) WriteNegate() Id                  { return p.writeSimple(TagNegate, false) }
func (p *Pool) WriteUnaryPlus() Id               { return p.writeSimple(TagUnaryPlus, false) }
func (p *Pool) WriteArrayType() Id               { return p.writeSimple(TagArrayType, false) }
func (p *Pool) WriteUndefined() Id               { return p.writeSimple(TagUndefined, false) }
func (p *Pool) WriteUnreachable() Id             { return p.writeSimple(TagUnreachable, false) }
func (p *Pool) WriteValueVoid() Id               { return p.writeSimple(TagValueVoid, false) }
func (p *Pool) WriteDiscardVoid() Id             { return p.writeSimple(TagDiscardVoid, false) }
func (p *Pool) WriteCheckTopVoid() Id            { return p.writeSimple(TagCheckTopVoid, false) }
func (p *Pool) WriteCheckWriteCtxVoid() Id       { return p.writeSimple(TagCheckWriteCtxVoid, false) }
func (p *Pool) WriteEndCode() Id                 { return p.writeSimple(TagEndCode, false) }

func (p *Pool) WriteScopeBegin(memberCount uint16) Id {
	id := p.WriteTag(TagScopeBegin, false)
	p.WriteU32(uint32(memberCount))
	return id
}

func (p *Pool) writeAllocTyped(tag Tag, isMut bool) Id {
	id := p.WriteTag(tag, false)
	p.WriteU8(boolByte(isMut))
	return id
}

func (p *Pool) WriteScopeAllocTyped(isMut bool) Id   { return p.writeAllocTyped(TagScopeAllocTyped, isMut) }
func (p *Pool) WriteScopeAllocUntyped(isMut bool) Id { return p.writeAllocTyped(TagScopeAllocUntyped, isMut) }

func (p *Pool) writeFileGlobalAlloc(tag Tag, isMut bool, file GlobalFileIndex, rank uint16) Id {
	id := p.WriteTag(tag, false)
	p.WriteU8(boolByte(isMut))
	p.WriteU32(uint32(file))
	p.WriteU32(uint32(rank))
	return id
}

func (p *Pool) WriteFileGlobalAllocTyped(isMut bool, file GlobalFileIndex, rank uint16) Id {
	return p.writeFileGlobalAlloc(TagFileGlobalAllocTyped, isMut, file, rank)
}

func (p *Pool) WriteFileGlobalAllocUntyped(isMut bool, file GlobalFileIndex, rank uint16) Id {
	return p.writeFileGlobalAlloc(TagFileGlobalAllocUntyped, isMut, file, rank)
}

func (p *Pool) WriteLoadScope(out, rank uint16) Id {
	id := p.WriteTag(TagLoadScope, false)
	p.WriteU32(uint32(out))
	p.WriteU32(uint32(rank))
	return id
}

func (p *Pool) WriteLoadGlobal(file GlobalFileIndex, rank uint16) Id {
	id := p.WriteTag(TagLoadGlobal, false)
	p.WriteU32(uint32(file))
	p.WriteU32(uint32(rank))
	return id
}

func (p *Pool) WriteLoadMember(name IdentifierId) Id {
	id := p.WriteTag(TagLoadMember, false)
	p.WriteU32(uint32(name))
	return id
}

func (p *Pool) WriteLoadClosure(rank uint16) Id {
	id := p.WriteTag(TagLoadClosure, false)
	p.WriteU32(uint32(rank))
	return id
}

func (p *Pool) writeBuiltin(tag Tag, b Builtin) Id {
	id := p.WriteTag(tag, false)
	p.WriteU8(uint8(b))
	return id
}

func (p *Pool) WriteLoadBuiltin(b Builtin) Id { return p.writeBuiltin(TagLoadBuiltin, b) }
func (p *Pool) WriteExecBuiltin(b Builtin) Id { return p.writeBuiltin(TagExecBuiltin, b) }

func (p *Pool) WriteSignature(flags uint8, valueCount uint8, params []ParamRecord) Id {
	id := p.WriteTag(TagSignature, false)
	p.WriteU8(flags)
	p.WriteU8(uint8(len(params)))
	p.WriteU8(valueCount)
	for _, pr := range params {
		p.WriteU32(uint32(pr.Name))
		p.WriteU8(pr.Flags)
	}
	return id
}

// WriteDynSignature's returnCompletion is InvalidId when the signature's
// return type needs no deferred completion.
func (p *Pool) WriteDynSignature(flags uint8, valueCount uint8, closedCount uint16, returnCompletion Id, params []ParamRecord) Id {
	id := p.WriteTag(TagDynSignature, false)
	p.WriteU8(flags)
	p.WriteU8(uint8(len(params)))
	p.WriteU8(valueCount)
	p.WriteU32(uint32(closedCount))
	p.WriteU8(boolByte(returnCompletion != InvalidId))
	if returnCompletion != InvalidId {
		p.WriteId(returnCompletion)
	}
	for _, pr := range params {
		p.WriteU32(uint32(pr.Name))
		p.WriteU8(pr.Flags)
		p.WriteU8(boolByte(pr.Completion != InvalidId))
		if pr.Completion != InvalidId {
			p.WriteId(pr.Completion)
		}
	}
	return id
}

func (p *Pool) WriteBindBody(body Id) Id {
	id := p.WriteTag(TagBindBody, false)
	p.WriteId(body)
	return id
}

func (p *Pool) WriteBindBodyWithClosure(body Id, closedCount uint16) Id {
	id := p.WriteTag(TagBindBodyWithClosure, false)
	p.WriteId(body)
	p.WriteU32(uint32(closedCount))
	return id
}

func (p *Pool) WritePrepareArgs(names []IdentifierId, values []Id) Id {
	if len(names) != len(values) {
		panic("opcode: PrepareArgs names/values length mismatch")
	}
	id := p.WriteTag(TagPrepareArgs, false)
	p.WriteU8(uint8(len(names)))
	for _, n := range names {
		p.WriteU32(uint32(n))
	}
	for _, v := range values {
		p.WriteId(v)
	}
	return id
}

func (p *Pool) writeCompleteParam(tag Tag, rank uint8) Id {
	id := p.WriteTag(tag, false)
	p.WriteU8(rank)
	return id
}

func (p *Pool) WriteCompleteParamType(rank uint8) Id  { return p.writeCompleteParam(TagCompleteParamType, rank) }
func (p *Pool) WriteCompleteParamValue(rank uint8) Id { return p.writeCompleteParam(TagCompleteParamValue, rank) }

func (p *Pool) writeArrayInit(tag Tag, leadingElemCount uint16, followingElemCounts []uint16) Id {
	id := p.WriteTag(tag, false)
	p.WriteU32(uint32(len(followingElemCounts)))
	p.WriteU32(uint32(leadingElemCount))
	for _, c := range followingElemCounts {
		p.WriteU32(uint32(c))
	}
	return id
}

func (p *Pool) WriteArrayPreInit(leadingElemCount uint16, followingElemCounts []uint16) Id {
	return p.writeArrayInit(TagArrayPreInit, leadingElemCount, followingElemCounts)
}

func (p *Pool) WriteArrayPostInit(leadingElemCount uint16, followingElemCounts []uint16) Id {
	return p.writeArrayInit(TagArrayPostInit, leadingElemCount, followingElemCounts)
}

// CompositeInitName is one entry of CompositePreInit's per-name table:
// the member being initialized and how many of the *following*
// positional initializers belong to it (distinct from the opcode's own
// top-level leading-initializer count, which covers positional
// initializers that precede any name).
type CompositeInitName struct {
	Name                      IdentifierId
	FollowingInitializerCount uint16
}

func (p *Pool) WriteCompositePreInit(leadingInitializerCount uint16, names []CompositeInitName) Id {
	id := p.WriteTag(TagCompositePreInit, false)
	p.WriteU32(uint32(len(names)))
	p.WriteU32(uint32(leadingInitializerCount))
	for _, n := range names {
		p.WriteU32(uint32(n.Name))
		p.WriteU32(uint32(n.FollowingInitializerCount))
	}
	return id
}

func (p *Pool) WriteCompositePostInit(members []IdentifierId) Id {
	id := p.WriteTag(TagCompositePostInit, false)
	p.WriteU32(uint32(len(members)))
	for _, m := range members {
		p.WriteU32(uint32(m))
	}
	return id
}

func (p *Pool) WriteIf(consequent Id) Id {
	id := p.WriteTag(TagIf, false)
	p.WriteId(consequent)
	return id
}

func (p *Pool) WriteIfElse(consequent, alternative Id) Id {
	id := p.WriteTag(TagIfElse, false)
	p.WriteId(consequent)
	p.WriteId(alternative)
	return id
}

func (p *Pool) WriteLoop(condition, body Id) Id {
	id := p.WriteTag(TagLoop, false)
	p.WriteId(condition)
	p.WriteId(body)
	return id
}

func (p *Pool) WriteLoopFinally(condition, body, finally Id) Id {
	id := p.WriteTag(TagLoopFinally, false)
	p.WriteId(condition)
	p.WriteId(body)
	p.WriteId(finally)
	return id
}

func (p *Pool) WriteSlice(kind SliceKind) Id {
	id := p.WriteTag(TagSlice, false)
	p.WriteU8(uint8(kind))
	return id
}

func (p *Pool) WriteBinaryArithmeticOp(kind ArithmeticKind) Id {
	id := p.WriteTag(TagBinaryArithmeticOp, false)
	p.WriteU8(uint8(kind))
	return id
}

func (p *Pool) WriteShift(kind ShiftKind) Id {
	id := p.WriteTag(TagShift, false)
	p.WriteU8(uint8(kind))
	return id
}

func (p *Pool) WriteBinaryBitwiseOp(kind BitwiseKind) Id {
	id := p.WriteTag(TagBinaryBitwiseOp, false)
	p.WriteU8(uint8(kind))
	return id
}

func (p *Pool) WriteCompare(kind CompareKind) Id {
	id := p.WriteTag(TagCompare, false)
	p.WriteU8(uint8(kind))
	return id
}

func (p *Pool) WriteReferenceType(flags ReferenceTypeFlags) Id {
	id := p.WriteTag(TagReferenceType, false)
	p.WriteU8(uint8(flags))
	return id
}

const inlineIntegerFlag = 0x01

// WriteValueInteger inlines v into the flag byte when it fits in a
// signed 7-bit value, else follows with a full i64.
func (p *Pool) WriteValueInteger(v int64) Id {
	id := p.WriteTag(TagValueInteger, false)
	if v >= -64 && v <= 63 {
		p.WriteU8(inlineIntegerFlag | uint8(int8(v)<<1))
		return id
	}
	p.WriteU8(0)
	p.WriteI64(v)
	return id
}

func (p *Pool) WriteValueFloat(v float64) Id {
	id := p.WriteTag(TagValueFloat, false)
	p.WriteF64(v)
	return id
}

func (p *Pool) WriteValueString(v ForeverValueId) Id {
	id := p.WriteTag(TagValueString, false)
	p.WriteU32(uint32(v))
	return id
}

// WriteJumpTable implements the Switch encoding this catalog adds (see
// DESIGN.md's Open Question note): a case count, (value, target) pairs
// in source order, then a trailing default target.
func (p *Pool) WriteJumpTable(cases []JumpCase, defaultTarget Id) Id {
	id := p.WriteTag(TagJumpTable, false)
	p.WriteU32(uint32(len(cases)))
	for _, c := range cases {
		p.WriteI64(c.Value)
		p.WriteId(c.Target)
	}
	p.WriteId(defaultTarget)
	return id
}

type JumpCase struct {
	Value  int64
	Target Id
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
