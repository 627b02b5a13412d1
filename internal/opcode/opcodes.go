// Package opcode implements OpcodePool (C9): a variable-length,
// byte-addressed instruction stream with back-references by OpcodeId,
// plus a reader and formatter over it.
//
// Adapted from the teacher's internal/bytecode (moved here as
// internal/opcode): that package's OpCode enum and Chunk/WriteOp
// append-only-buffer idiom are kept, but the catalog itself is
// replaced wholesale with spec.md §4.9's tag list and operand
// encodings — the teacher's stack-machine opcode set (OpAdd, OpJump,
// OpCall, ...) has no 1:1 correspondence to a typed IR for closures,
// signatures and structural initializers, so this is a rewrite of the
// catalog in the same "byte tag + fixed operand shape" style rather
// than a line-for-line port.
package opcode

// Tag is the low 7 bits of an opcode's leading byte; the high bit is
// the separate consumes_write_ctx flag (see Pool.WriteTag).
type Tag uint8

const (
	TagInvalid Tag = iota

	TagSetWriteCtx
	TagScopeBegin
	TagScopeEnd
	TagScopeAllocTyped
	TagScopeAllocUntyped
	TagFileGlobalAllocTyped
	TagFileGlobalAllocUntyped
	TagLoadScope
	TagLoadGlobal
	TagLoadMember
	TagLoadClosure
	TagLoadBuiltin
	TagExecBuiltin
	TagPopClosure
	TagSignature
	TagDynSignature
	TagBindBody
	TagBindBodyWithClosure
	TagPrepareArgs
	TagExecArgs
	TagCall
	TagCompleteParamType
	TagCompleteParamValue
	TagReturn
	TagAddressOf
	TagDereference
	TagIndex
	TagSlice
	TagArrayPreInit
	TagArrayPostInit
	TagCompositePreInit
	TagCompositePostInit
	TagArrayType
	TagReferenceType
	TagIf
	TagIfElse
	TagLoop
	TagLoopFinally
	TagBinaryArithmeticOp
	TagShift
	TagBinaryBitwiseOp
	TagCompare
	TagBitNot
	TagLogicalAnd
	TagLogicalOr
	TagLogicalNot
	TagNegate
	TagUnaryPlus
	TagUndefined
	TagUnreachable
	TagValueVoid
	TagValueInteger
	TagValueFloat
	TagValueString
	TagDiscardVoid
	TagCheckTopVoid
	TagCheckWriteCtxVoid
	// JumpTable fills spec.md §9's unresolved "opcode Switch encoding"
	// open question — see DESIGN.md.
	TagJumpTable
	TagEndCode
)

var tagNames = [...]string{
	TagInvalid: "Invalid",

	TagSetWriteCtx:            "SetWriteCtx",
	TagScopeBegin:             "ScopeBegin",
	TagScopeEnd:               "ScopeEnd",
	TagScopeAllocTyped:        "ScopeAllocTyped",
	TagScopeAllocUntyped:      "ScopeAllocUntyped",
	TagFileGlobalAllocTyped:   "FileGlobalAllocTyped",
	TagFileGlobalAllocUntyped: "FileGlobalAllocUntyped",
	TagLoadScope:              "LoadScope",
	TagLoadGlobal:             "LoadGlobal",
	TagLoadMember:             "LoadMember",
	TagLoadClosure:            "LoadClosure",
	TagLoadBuiltin:            "LoadBuiltin",
	TagExecBuiltin:            "ExecBuiltin",
	TagPopClosure:             "PopClosure",
	TagSignature:              "Signature",
	TagDynSignature:           "DynSignature",
	TagBindBody:               "BindBody",
	TagBindBodyWithClosure:    "BindBodyWithClosure",
	TagPrepareArgs:            "PrepareArgs",
	TagExecArgs:               "ExecArgs",
	TagCall:                   "Call",
	TagCompleteParamType:      "CompleteParamType",
	TagCompleteParamValue:     "CompleteParamValue",
	TagReturn:                 "Return",
	TagAddressOf:              "AddressOf",
	TagDereference:            "Dereference",
	TagIndex:                  "Index",
	TagSlice:                  "Slice",
	TagArrayPreInit:           "ArrayPreInit",
	TagArrayPostInit:          "ArrayPostInit",
	TagCompositePreInit:       "CompositePreInit",
	TagCompositePostInit:      "CompositePostInit",
	TagArrayType:              "ArrayType",
	TagReferenceType:          "ReferenceType",
	TagIf:                     "If",
	TagIfElse:                "IfElse",
	TagLoop:                   "Loop",
	TagLoopFinally:            "LoopFinally",
	TagBinaryArithmeticOp:     "BinaryArithmeticOp",
	TagShift:                  "Shift",
	TagBinaryBitwiseOp:        "BinaryBitwiseOp",
	TagCompare:                "Compare",
	TagBitNot:                 "BitNot",
	TagLogicalAnd:             "LogicalAnd",
	TagLogicalOr:              "LogicalOr",
	TagLogicalNot:             "LogicalNot",
	TagNegate:                 "Negate",
	TagUnaryPlus:              "UnaryPlus",
	TagUndefined:              "Undefined",
	TagUnreachable:            "Unreachable",
	TagValueVoid:              "ValueVoid",
	TagValueInteger:           "ValueInteger",
	TagValueFloat:             "ValueFloat",
	TagValueString:            "ValueString",
	TagDiscardVoid:            "DiscardVoid",
	TagCheckTopVoid:           "CheckTopVoid",
	TagCheckWriteCtxVoid:      "CheckWriteCtxVoid",
	TagJumpTable:              "JumpTable",
	TagEndCode:                "EndCode",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) && tagNames[t] != "" {
		return tagNames[t]
	}
	return "?"
}

// ArithmeticKind is BinaryArithmeticOp's operand: the five arithmetic
// operators, plus trap-on-overflow variants of Add, Sub and Mul.
type ArithmeticKind uint8

const (
	ArithAdd ArithmeticKind = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithMod
	ArithAddTrapOverflow
	ArithSubTrapOverflow
	ArithMulTrapOverflow
)

type ShiftKind uint8

const (
	ShiftLeft ShiftKind = iota
	ShiftRight
)

type BitwiseKind uint8

const (
	BitwiseAnd BitwiseKind = iota
	BitwiseOr
	BitwiseXor
)

type CompareKind uint8

const (
	CompareLt CompareKind = iota
	CompareLe
	CompareGt
	CompareGe
	CompareNe
	CompareEq
)

type SliceKind uint8

const (
	SliceNoBounds SliceKind = iota
	SliceBeginBound
	SliceEndBound
	SliceBothBounds
)

// ReferenceTypeFlags packs ReferenceType's operand byte: tag bit
// (Ptr=0/Slice=1), is_mut, is_multi, is_opt.
type ReferenceTypeFlags uint8

const (
	RefIsSlice ReferenceTypeFlags = 1 << 0
	RefIsMut   ReferenceTypeFlags = 1 << 1
	RefIsMulti ReferenceTypeFlags = 1 << 2
	RefIsOpt   ReferenceTypeFlags = 1 << 3
)

// Id is a 32-bit byte offset into an opcode stream, used for
// back-references (a loop body, a typed-return completion callback,
// jump targets).
type Id uint32

const InvalidId Id = 0

// GlobalFileIndex identifies which compiled file a global belongs to.
type GlobalFileIndex uint32
