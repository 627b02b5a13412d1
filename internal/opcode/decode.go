package opcode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// cursor reads sequentially from a Pool's stream; it never grows or
// mutates the stream, matching spec.md §5's "reader is read-only" rule.
type cursor struct {
	pool *Pool
	pos  int
}

func (c *cursor) u8() uint8 {
	b := c.pool.byteAt(c.pos, 1)
	c.pos++
	return b[0]
}

func (c *cursor) u32() uint32 {
	b := c.pool.byteAt(c.pos, 4)
	c.pos += 4
	return binary.LittleEndian.Uint32(b)
}

func (c *cursor) u16() uint16 {
	// u16 operands are stored as a full u32 (see Write* in encode.go);
	// fields are not aligned, since the tag and bool operands are one
	// byte each.
	return uint16(c.u32())
}

func (c *cursor) i64() int64 {
	b := c.pool.byteAt(c.pos, 8)
	c.pos += 8
	return int64(binary.LittleEndian.Uint64(b))
}

func (c *cursor) f64() float64 {
	b := c.pool.byteAt(c.pos, 8)
	c.pos += 8
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (c *cursor) id() Id {
	return Id(c.u32())
}

func (c *cursor) boolean() bool {
	return c.u8() != 0
}

func (c *cursor) bytes() []byte {
	n := c.u32()
	if n == 0 {
		return nil
	}
	b := c.pool.byteAt(c.pos, int(n))
	c.pos += int(n)
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Instruction is a decoded opcode: its tag, its consumes_write_ctx
// flag, and whichever operand fields its tag's row in the catalog
// fills in. Unused fields for a given tag hold their zero value.
type Instruction struct {
	Id               Id
	Tag              Tag
	ConsumesWriteCtx bool
	Len              int

	Bool1, Bool2 bool
	U8A          uint8
	U16A, U16B   uint16
	GlobalFile   GlobalFileIndex
	Ident        IdentifierId
	Builtin      Builtin
	Flags        uint8
	ParamCount   uint8
	ValueCount   uint8
	ClosedCount  uint16
	Params       []ParamRecord

	Names  []IdentifierId
	Values []Id

	OpId1, OpId2, OpId3 Id

	ArithKind   ArithmeticKind
	ShiftKind   ShiftKind
	BitwiseKind BitwiseKind
	CompareKind CompareKind
	SliceKind   SliceKind
	RefFlags    ReferenceTypeFlags

	LeadingElemCount    uint16
	FollowingElemCounts []uint16

	CompositeLeadingInitializerCount uint16
	CompositeNames                   []CompositeInitName
	CompositeMembers                 []IdentifierId

	Int64       int64
	Float64     float64
	ForeverVal  ForeverValueId

	JumpCases   []JumpCase
	JumpDefault Id
}

// Decode reads exactly one instruction starting at at, returning its
// decoded form and its total encoded length in bytes.
func Decode(pool *Pool, at Id) Instruction {
	c := &cursor{pool: pool, pos: int(at)}
	leading := c.u8()
	instr := Instruction{
		Id:               at,
		Tag:              Tag(leading & 0x7F),
		ConsumesWriteCtx: leading&0x80 != 0,
	}

	switch instr.Tag {
	case TagSetWriteCtx, TagScopeEnd, TagPopClosure, TagExecArgs, TagCall, TagReturn,
		TagAddressOf, TagDereference, TagIndex, TagBitNot, TagLogicalAnd, TagLogicalOr,
		TagLogicalNot, TagNegate, TagUnaryPlus, TagArrayType, TagUndefined, TagUnreachable,
		TagValueVoid, TagDiscardVoid, TagCheckTopVoid, TagCheckWriteCtxVoid, TagEndCode:
		// no operands

	case TagScopeBegin:
		instr.U16A = c.u16()

	case TagScopeAllocTyped, TagScopeAllocUntyped:
		instr.Bool1 = c.boolean()

	case TagFileGlobalAllocTyped, TagFileGlobalAllocUntyped:
		instr.Bool1 = c.boolean()
		instr.GlobalFile = GlobalFileIndex(c.u32())
		instr.U16A = c.u16()

	case TagLoadScope:
		instr.U16A = c.u16()
		instr.U16B = c.u16()

	case TagLoadGlobal:
		instr.GlobalFile = GlobalFileIndex(c.u32())
		instr.U16A = c.u16()

	case TagLoadMember:
		instr.Ident = IdentifierId(c.u32())

	case TagLoadClosure:
		instr.U16A = c.u16()

	case TagLoadBuiltin, TagExecBuiltin:
		instr.Builtin = Builtin(c.u8())

	case TagSignature:
		instr.Flags = c.u8()
		instr.ParamCount = c.u8()
		instr.ValueCount = c.u8()
		instr.Params = make([]ParamRecord, instr.ParamCount)
		for i := range instr.Params {
			instr.Params[i] = ParamRecord{Name: IdentifierId(c.u32()), Flags: c.u8(), Completion: InvalidId}
		}

	case TagDynSignature:
		instr.Flags = c.u8()
		instr.ParamCount = c.u8()
		instr.ValueCount = c.u8()
		instr.ClosedCount = c.u16()
		if c.boolean() {
			instr.OpId1 = c.id()
		}
		instr.Params = make([]ParamRecord, instr.ParamCount)
		for i := range instr.Params {
			name := IdentifierId(c.u32())
			flags := c.u8()
			var completion Id = InvalidId
			if c.boolean() {
				completion = c.id()
			}
			instr.Params[i] = ParamRecord{Name: name, Flags: flags, Completion: completion}
		}

	case TagBindBody:
		instr.OpId1 = c.id()

	case TagBindBodyWithClosure:
		instr.OpId1 = c.id()
		instr.ClosedCount = c.u16()

	case TagPrepareArgs:
		instr.U8A = c.u8()
		instr.Names = make([]IdentifierId, instr.U8A)
		for i := range instr.Names {
			instr.Names[i] = IdentifierId(c.u32())
		}
		instr.Values = make([]Id, instr.U8A)
		for i := range instr.Values {
			instr.Values[i] = c.id()
		}

	case TagCompleteParamType, TagCompleteParamValue:
		instr.U8A = c.u8()

	case TagArrayPreInit, TagArrayPostInit:
		count := c.u32()
		instr.LeadingElemCount = c.u16()
		instr.FollowingElemCounts = make([]uint16, count)
		for i := range instr.FollowingElemCounts {
			instr.FollowingElemCounts[i] = c.u16()
		}

	case TagCompositePreInit:
		count := c.u32()
		instr.CompositeLeadingInitializerCount = c.u16()
		instr.CompositeNames = make([]CompositeInitName, count)
		for i := range instr.CompositeNames {
			instr.CompositeNames[i] = CompositeInitName{Name: IdentifierId(c.u32()), FollowingInitializerCount: c.u16()}
		}

	case TagCompositePostInit:
		count := c.u32()
		instr.CompositeMembers = make([]IdentifierId, count)
		for i := range instr.CompositeMembers {
			instr.CompositeMembers[i] = IdentifierId(c.u32())
		}

	case TagIf:
		instr.OpId1 = c.id()

	case TagIfElse:
		instr.OpId1 = c.id()
		instr.OpId2 = c.id()

	case TagLoop:
		instr.OpId1 = c.id()
		instr.OpId2 = c.id()

	case TagLoopFinally:
		instr.OpId1 = c.id()
		instr.OpId2 = c.id()
		instr.OpId3 = c.id()

	case TagSlice:
		instr.SliceKind = SliceKind(c.u8())

	case TagBinaryArithmeticOp:
		instr.ArithKind = ArithmeticKind(c.u8())

	case TagShift:
		instr.ShiftKind = ShiftKind(c.u8())

	case TagBinaryBitwiseOp:
		instr.BitwiseKind = BitwiseKind(c.u8())

	case TagCompare:
		instr.CompareKind = CompareKind(c.u8())

	case TagReferenceType:
		instr.RefFlags = ReferenceTypeFlags(c.u8())

	case TagValueInteger:
		b := c.u8()
		if b&inlineIntegerFlag != 0 {
			instr.Int64 = int64(int8(b) >> 1)
		} else {
			instr.Int64 = c.i64()
		}

	case TagValueFloat:
		instr.Float64 = c.f64()

	case TagValueString:
		instr.ForeverVal = ForeverValueId(c.u32())

	case TagJumpTable:
		count := c.u32()
		instr.JumpCases = make([]JumpCase, count)
		for i := range instr.JumpCases {
			instr.JumpCases[i] = JumpCase{Value: c.i64(), Target: c.id()}
		}
		instr.JumpDefault = c.id()

	default:
		panic(fmt.Sprintf("opcode: Decode hit unknown tag %d at %d", leading&0x7F, at))
	}

	instr.Len = c.pos - int(at)
	return instr
}
